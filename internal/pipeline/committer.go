package pipeline

import (
	"context"
	"fmt"
	"time"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/storage"
	"fitcoach/programgen/internal/vectorindex"

	"go.uber.org/zap"
)

// Committer persists a finished draft: detail blob, then metadata document, then search record.
type Committer struct {
	objects  storage.ObjectStore
	programs repository.ProgramRepository
	index    vectorindex.Index // optional
	now      func() time.Time
	logger   *zap.Logger
}

func NewCommitter(objects storage.ObjectStore, programs repository.ProgramRepository, index vectorindex.Index, logger *zap.Logger) *Committer {
	return &Committer{objects: objects, programs: programs, index: index, now: time.Now, logger: logger}
}

// CommitResult reports what was written.
type CommitResult struct {
	BlobKey string
	Indexed bool
}

// Commit writes the draft. Blob and document failures abort; an index failure is logged only.
func (c *Committer) Commit(ctx context.Context, d *Draft) (CommitResult, error) {
	p := d.Program
	now := c.now().UTC()

	// 1. Detail blob
	for i := range d.Templates {
		sd := calendar.ScheduledDate(p.StartDate, d.Templates[i].DayNumber, p.PausedDuration)
		d.Templates[i].ScheduledDate = &sd
	}
	plan := domain.WorkoutPlan{
		ProgramID:     p.ID,
		OwnerID:       p.OwnerID,
		SchemaVersion: domain.WorkoutPlanSchemaVersion,
		Templates:     d.Templates,
		UpdatedAt:     now,
	}
	if err := c.objects.PutJSON(ctx, p.WorkoutsRef, plan); err != nil {
		return CommitResult{}, &RunError{Kind: KindStepFailed, Step: StageCommit, Err: fmt.Errorf("store workout plan: %w", err)}
	}

	// 2. Metadata document
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := c.programs.Create(ctx, p); err != nil {
		if delErr := c.objects.DeleteObject(ctx, p.WorkoutsRef); delErr != nil {
			c.logger.Warn("orphaned workout plan left in storage",
				zap.String("key", p.WorkoutsRef), zap.Error(delErr))
		}
		return CommitResult{}, &RunError{Kind: KindStepFailed, Step: StageCommit, Err: fmt.Errorf("create program: %w", err)}
	}
	out := CommitResult{BlobKey: p.WorkoutsRef}

	// 3. Search record, best effort
	if c.index == nil {
		return out, nil
	}
	rec := vectorindex.Record{
		ID:      p.ID,
		OwnerID: p.OwnerID,
		Text:    p.Summary,
		Metadata: map[string]any{
			"programId":         p.ID,
			"name":              p.Name,
			"coachId":           p.CoachID,
			"totalDays":         p.TotalDays,
			"trainingFrequency": p.TrainingFrequency,
			"goals":             p.TrainingGoals,
			"startDate":         p.StartDate.Format("2006-01-02"),
		},
	}
	if err := c.index.Upsert(ctx, rec); err != nil {
		c.logger.Warn("vector index write failed",
			zap.String("kind", string(KindNonCriticalSideEffect)),
			zap.String("programId", p.ID), zap.Error(err))
		return out, nil
	}
	out.Indexed = true
	return out, nil
}
