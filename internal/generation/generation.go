// Package generation talks to the generative text service.
//
// Callers never trust what comes back: every response is raw text that goes through
// respparse before it is used.
package generation

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

var (
	ErrEmptyResponse = errors.New("generation service returned no content")
	ErrNotConfigured = errors.New("generation service is not configured")
)

// Step names the pipeline step issuing a call.
type Step string

const (
	StepStructure  Step = "structure"
	StepWorkouts   Step = "workouts"
	StepPrune      Step = "prune"
	StepNormalize  Step = "normalize"
	StepSummary    Step = "summary"
	StepRegenerate Step = "regenerate"
)

// Request is one call to the generation service.
type Request struct {
	Step        Step
	System      string
	Prompt      string
	Schema      *genai.Schema // target schema; compliance is never assumed
	Temperature *float32      // nil uses the service default
}

// Service produces raw text for a request.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a vector for semantic retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
