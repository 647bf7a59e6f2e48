package respparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type phaseDoc struct {
	Name       string   `json:"name"`
	StartDay   int      `json:"startDay"`
	EndDay     int      `json:"endDay"`
	FocusAreas []string `json:"focusAreas"`
}

type structureDoc struct {
	Phases []phaseDoc `json:"phases"`
	Note   string     `json:"note"`
}

const validDoc = `{"phases":[{"name":"Base","startDay":1,"endDay":14,"focusAreas":["aerobic base","technique"]},{"name":"Build","startDay":15,"endDay":28,"focusAreas":["strength"]}],"note":"ok \"quoted\" {brace}"}`

func expectedDoc() structureDoc {
	return structureDoc{
		Phases: []phaseDoc{
			{Name: "Base", StartDay: 1, EndDay: 14, FocusAreas: []string{"aerobic base", "technique"}},
			{Name: "Build", StartDay: 15, EndDay: 28, FocusAreas: []string{"strength"}},
		},
		Note: `ok "quoted" {brace}`,
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "bare", raw: validDoc},
		{name: "json fence", raw: "```json\n" + validDoc + "\n```"},
		{name: "plain fence", raw: "```\n" + validDoc + "\n```"},
		{name: "prose around fence", raw: "Here is the structure:\n```json\n" + validDoc + "\n```\nLet me know!"},
		{name: "trailing prose", raw: validDoc + "\nThat covers all phases."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got structureDoc
			res, err := Parse(tt.raw, &got)
			require.NoError(t, err)
			assert.False(t, res.Repaired)
			assert.Equal(t, CleanConfidence, res.Confidence)
			if diff := cmp.Diff(expectedDoc(), got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTopLevelArray(t *testing.T) {
	var got []map[string]int
	res, err := Parse("```json\n[{\"a\": 1}, {\"a\": 2}]\n```", &got)
	require.NoError(t, err)
	assert.False(t, res.Repaired)
	assert.Equal(t, []map[string]int{{"a": 1}, {"a": 2}}, got)

	got = nil
	res, err = Parse(`[{"a": 1}, {"a": 2},]`, &got)
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	assert.Len(t, got, 2)
}

func TestParseMissingFinalBrace(t *testing.T) {
	raw := validDoc[:len(validDoc)-1]
	var got structureDoc
	res, err := Parse(raw, &got)
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	assert.Contains(t, res.Repairs, RepairBalanced)
	assert.Less(t, res.Confidence, CleanConfidence)
	if diff := cmp.Diff(expectedDoc(), got); diff != "" {
		t.Errorf("repaired value mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRepairs(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       map[string]any
		repair     string
		confidence float64
	}{
		{
			name:       "trailing commas",
			raw:        `{"a": [1, 2, ], "b": "x",}`,
			want:       map[string]any{"a": []any{1.0, 2.0}, "b": "x"},
			repair:     RepairTrailingCommas,
			confidence: RepairedConfidence,
		},
		{
			name:       "line comments",
			raw:        "{\n  \"url\": \"http://example.com\", // the link\n  \"n\": 3\n}",
			want:       map[string]any{"url": "http://example.com", "n": 3.0},
			repair:     RepairComments,
			confidence: RepairedConfidence,
		},
		{
			name:       "truncated inside string",
			raw:        `{"summary": "Six weeks of progressive lo`,
			want:       map[string]any{"summary": "Six weeks of progressive lo"},
			repair:     RepairBalanced,
			confidence: RepairedConfidence,
		},
		{
			name:       "stray closer",
			raw:        `{"a": {"b": 1}}}`,
			want:       map[string]any{"a": map[string]any{"b": 1.0}},
			repair:     "",
			confidence: CleanConfidence,
		},
		{
			name:       "dangling key",
			raw:        `{"removeDays": [3, 10], "rationale": "keep long runs", "extra"`,
			want:       map[string]any{"removeDays": []any{3.0, 10.0}, "rationale": "keep long runs"},
			repair:     RepairTruncation,
			confidence: TruncatedConfidence,
		},
		{
			name:       "dangling colon",
			raw:        `{"a": 1, "b":`,
			want:       map[string]any{"a": 1.0, "b": nil},
			repair:     RepairBalanced,
			confidence: RepairedConfidence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			res, err := Parse(tt.raw, &got)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.confidence, res.Confidence)
			if tt.repair != "" {
				assert.True(t, res.Repaired)
				assert.Contains(t, res.Repairs, tt.repair)
			}
		})
	}
}

// Every truncation of a valid document is either flagged as repaired or rejected.
func TestParseTruncationNeverSilent(t *testing.T) {
	for cut := 1; cut < len(validDoc); cut++ {
		var got structureDoc
		res, err := Parse(validDoc[:cut], &got)
		if err != nil {
			assert.ErrorIs(t, err, ErrUnrecoverable, "cut at %d", cut)
			continue
		}
		assert.True(t, res.Repaired, "cut at %d returned unflagged data", cut)
		assert.Less(t, res.Confidence, CleanConfidence)
	}
}

func TestParseUnrecoverable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "prose only", raw: "I'm sorry, I can't produce that plan."},
		{name: "wrong shape", raw: `{"phases": "three of them"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got structureDoc
			_, err := Parse(tt.raw, &got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnrecoverable)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1`, StripFences("```json\n{\"a\":1"))
}
