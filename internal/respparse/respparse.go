// Package respparse turns generation-service output into structured values.
//
// Every response goes through Parse: markdown fences are stripped, a strict decode is attempted,
// and only when that fails are the repair heuristics applied (line comments, trailing commas,
// unbalanced containers, truncation). A repaired value is reported through Result so callers can
// lower their confidence; anything that cannot be repaired fails with ErrUnrecoverable.
package respparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnrecoverable = errors.New("unrecoverable generation response")

const (
	CleanConfidence     = 1.0
	RepairedConfidence  = 0.75
	TruncatedConfidence = 0.5

	maxCutAttempts = 32
)

// Repair names reported in Result.Repairs.
const (
	RepairComments       = "line_comments"
	RepairTrailingCommas = "trailing_commas"
	RepairBalanced       = "balanced_containers"
	RepairTruncation     = "truncation"
)

// Result describes how a value was obtained.
type Result struct {
	Repaired   bool
	Repairs    []string
	Confidence float64
}

// Parse decodes the JSON object (or array) contained in raw into v.
func Parse(raw string, v any) (Result, error) {
	text := StripFences(raw)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return Result{}, fmt.Errorf("%w: no JSON value in response", ErrUnrecoverable)
	}
	text = text[start:]

	msg, strictErr := decodeFirst(text)
	if strictErr == nil {
		return Result{Confidence: CleanConfidence}, into(msg, v)
	}

	res := Result{Repaired: true, Confidence: RepairedConfidence}
	candidate := text
	if c, changed := stripLineComments(candidate); changed {
		candidate = c
		res.Repairs = append(res.Repairs, RepairComments)
	}
	if c, changed := stripTrailingCommas(candidate); changed {
		candidate = c
		res.Repairs = append(res.Repairs, RepairTrailingCommas)
	}
	base := candidate
	if c, changed := balance(candidate); changed {
		candidate = c
		res.Repairs = append(res.Repairs, RepairBalanced)
	}
	if msg, err := decodeFirst(candidate); err == nil {
		return res, into(msg, v)
	}

	// Truncation recovery: walk back to the last complete element and close what is still open.
	cuts := cutPoints(base)
	for i, attempts := len(cuts)-1, 0; i >= 0 && attempts < maxCutAttempts; i, attempts = i-1, attempts+1 {
		c, _ := balance(base[:cuts[i]])
		if msg, err := decodeFirst(c); err == nil {
			res.Repairs = append(res.Repairs, RepairTruncation)
			res.Confidence = TruncatedConfidence
			return res, into(msg, v)
		}
	}
	return Result{}, fmt.Errorf("%w: %v", ErrUnrecoverable, strictErr)
}

// StripFences removes a surrounding markdown code fence and any prose before it.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "```")
	if idx < 0 {
		return s
	}
	s = s[idx+3:]
	// drop the language tag on the opening fence line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && isTag(s[:nl]) {
		s = s[nl+1:]
	} else if isTag(s) {
		s = ""
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func isTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func decodeFirst(s string) (json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var msg json.RawMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func into(msg json.RawMessage, v any) error {
	if err := json.Unmarshal(msg, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnrecoverable, err)
	}
	return nil
}
