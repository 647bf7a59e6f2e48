package mongo

import (
	"context"
	"testing"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func sampleProgram() *domain.Program {
	return &domain.Program{
		ID:                "prog-1",
		OwnerID:           "owner-1",
		CoachID:           "coach-1",
		Name:              "Six Week Base",
		Status:            domain.ProgramActive,
		StartDate:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalDays:         42,
		CurrentDay:        1,
		TrainingFrequency: 4,
		Phases: []domain.Phase{
			{ID: "ph-1", Name: "Base", StartDay: 1, EndDay: 42, DurationDays: 42},
		},
		WorkoutsRef: "programs/owner-1/prog-1/workouts.json",
	}
}

func TestProgramRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p := sampleProgram()
		require.NoError(mt, repo.Create(ctx, p))
		assert.False(mt, p.CreatedAt.IsZero())
	})

	mt.Run("create requires workoutsRef", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		p := sampleProgram()
		p.WorkoutsRef = ""
		assert.ErrorIs(mt, repo.Create(ctx, p), repository.ErrMissingFields)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		assert.ErrorIs(mt, repo.Create(ctx, sampleProgram()), repository.ErrDuplicateKey)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + programCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, sampleProgram())))

		got, err := repo.GetByID(ctx, "owner-1", "prog-1")
		require.NoError(mt, err)
		assert.Equal(mt, "Six Week Base", got.Name)
		assert.Equal(mt, 42, got.TotalDays)
		assert.Equal(mt, "programs/owner-1/prog-1/workouts.json", got.WorkoutsRef)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + programCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "owner-1", "missing")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("list by owner", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + programCollectionName
		second := sampleProgram()
		second.ID = "prog-2"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			toDoc(mt.T, sampleProgram()), toDoc(mt.T, second)))

		got, err := repo.ListByOwner(ctx, "owner-1", 5)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "prog-2", got[1].ID)
	})

	mt.Run("update not found", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		assert.ErrorIs(mt, repo.Update(ctx, sampleProgram()), repository.ErrNotFound)
	})

	mt.Run("update", func(mt *mtest.T) {
		repo := NewMongoProgramRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		assert.NoError(mt, repo.Update(ctx, sampleProgram()))
	})
}

func TestCoachProfileRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get", func(mt *mtest.T) {
		repo := NewMongoCoachProfileRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + coachProfileCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, domain.CoachProfile{
			ID: "cp-1", OwnerID: "owner-1", CoachID: "coach-1", DisplayName: "Coach Ana", TimeZone: "Europe/Berlin",
		})))

		got, err := repo.GetByOwnerAndCoach(ctx, "owner-1", "coach-1")
		require.NoError(mt, err)
		assert.Equal(mt, "Europe/Berlin", got.TimeZone)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoCoachProfileRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + coachProfileCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByOwnerAndCoach(ctx, "owner-1", "coach-x")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("upsert", func(mt *mtest.T) {
		repo := NewMongoCoachProfileRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, repo.Upsert(ctx, &domain.CoachProfile{OwnerID: "owner-1", CoachID: "coach-1"}))
	})
}

func TestGenerationRunRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create and update", func(mt *mtest.T) {
		repo := NewMongoGenerationRunRepository(mt.DB)
		run := &domain.GenerationRun{ID: "run-1", OwnerID: "owner-1", Status: domain.RunQueued}

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, repo.Create(ctx, run))

		run.Status = domain.RunFailed
		run.ErrorKind = "ValidationBlocked"
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, repo.Update(ctx, run))
	})

	mt.Run("get", func(mt *mtest.T) {
		repo := NewMongoGenerationRunRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + generationRunCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, domain.GenerationRun{
			ID: "run-1", OwnerID: "owner-1", Status: domain.RunSucceeded, ProgramID: "prog-1",
		})))

		got, err := repo.GetByID(ctx, "run-1")
		require.NoError(mt, err)
		assert.Equal(mt, domain.RunSucceeded, got.Status)
		assert.Equal(mt, "prog-1", got.ProgramID)
	})
}
