package mongo

import (
	"context"
	stderrors "errors"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const generationRunCollectionName = "generation_runs"

// mongoGenerationRunRepository implements repository.GenerationRunRepository
type mongoGenerationRunRepository struct {
	collection *mongo.Collection
}

// NewMongoGenerationRunRepository creates a new run-record repository backed by MongoDB.
func NewMongoGenerationRunRepository(db *mongo.Database) repository.GenerationRunRepository {
	return &mongoGenerationRunRepository{
		collection: db.Collection(generationRunCollectionName),
	}
}

// Create inserts a new run record.
func (r *mongoGenerationRunRepository) Create(ctx context.Context, run *domain.GenerationRun) error {
	if run.ID == "" || run.OwnerID == "" {
		return errors.Wrap(repository.ErrMissingFields, "run requires id and ownerId")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateKey
		}
		return errors.Wrapf(err, "insert run %s", run.ID)
	}
	return nil
}

// GetByID retrieves a run record by its ID.
func (r *mongoGenerationRunRepository) GetByID(ctx context.Context, runID string) (*domain.GenerationRun, error) {
	var run domain.GenerationRun
	err := r.collection.FindOne(ctx, bson.M{"_id": runID}).Decode(&run)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find run %s", runID)
	}
	return &run, nil
}

// Update replaces the run record with its latest state.
func (r *mongoGenerationRunRepository) Update(ctx context.Context, run *domain.GenerationRun) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	if err != nil {
		return errors.Wrapf(err, "update run %s", run.ID)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureGenerationRunIndexes creates necessary indexes for the generation_runs collection.
func EnsureGenerationRunIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return errors.Wrapf(err, "create indexes for %s", collection.Name())
}
