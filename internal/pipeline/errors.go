package pipeline

import (
	"errors"
	"fmt"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/respparse"
)

// Kind classifies run failures for operators.
type Kind string

const (
	KindConfigurationMissing  Kind = "ConfigurationMissing"
	KindGenerationUnparseable Kind = "GenerationUnparseable"
	KindValidationBlocked     Kind = "ValidationBlocked"
	KindStepFailed            Kind = "StepFailed"
	KindNonCriticalSideEffect Kind = "NonCriticalSideEffect"
)

var (
	ErrConfigurationMissing  = errors.New("coach configuration missing")
	ErrGenerationUnparseable = errors.New("generation response unparseable")
	ErrValidationBlocked     = errors.New("program failed validation")
	ErrStepFailed            = errors.New("pipeline step failed")

	ErrStorageRefChanged = errors.New("workouts reference changed while repairing the draft")
	ErrLegacyFormat      = errors.New("structured exercise format is not supported")
	ErrNoPhases          = errors.New("structure response contains no phases")
)

// RunError is the structured failure of a pipeline run.
type RunError struct {
	Kind   Kind
	Step   string
	Issues []domain.NormalizationIssue // set for ValidationBlocked
	Err    error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at %s", e.Kind, e.Step)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Is matches the kind sentinels so callers can use errors.Is(err, ErrValidationBlocked).
func (e *RunError) Is(target error) bool {
	switch target {
	case ErrConfigurationMissing:
		return e.Kind == KindConfigurationMissing
	case ErrGenerationUnparseable:
		return e.Kind == KindGenerationUnparseable
	case ErrValidationBlocked:
		return e.Kind == KindValidationBlocked
	case ErrStepFailed:
		return e.Kind == KindStepFailed
	}
	return false
}

// KindOf reports the kind of err, StepFailed for anything unclassified.
func KindOf(err error) Kind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindStepFailed
}

// stepError classifies a failure of a generation-backed step.
func stepError(step string, err error) error {
	var re *RunError
	if errors.As(err, &re) {
		return err
	}
	kind := KindStepFailed
	if errors.Is(err, respparse.ErrUnrecoverable) || errors.Is(err, ErrLegacyFormat) || errors.Is(err, ErrNoPhases) {
		kind = KindGenerationUnparseable
	}
	return &RunError{Kind: kind, Step: step, Err: err}
}
