package repository

import (
	"context"

	"fitcoach/programgen/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrDuplicateKey  = RepositoryError("duplicate key")
	ErrMissingFields = RepositoryError("required fields missing")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ProgramRepository stores Program metadata documents, keyed by (owner, programId).
// Template bodies never go through here; they live in object storage.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) error
	GetByID(ctx context.Context, ownerID, programID string) (*domain.Program, error)
	ListByOwner(ctx context.Context, ownerID string, limit int64) ([]domain.Program, error) // newest first
	ListActive(ctx context.Context) ([]domain.Program, error)
	Update(ctx context.Context, program *domain.Program) error
}

// CoachProfileRepository resolves the coach configuration bound to an owner.
type CoachProfileRepository interface {
	GetByOwnerAndCoach(ctx context.Context, ownerID, coachID string) (*domain.CoachProfile, error)
	Upsert(ctx context.Context, profile *domain.CoachProfile) error
}

// GenerationRunRepository stores the operator records of pipeline runs.
type GenerationRunRepository interface {
	Create(ctx context.Context, run *domain.GenerationRun) error
	GetByID(ctx context.Context, runID string) (*domain.GenerationRun, error)
	Update(ctx context.Context, run *domain.GenerationRun) error
}
