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

const programCollectionName = "programs"

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new Program repository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a fully built program. The caller assigns the ID.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) error {
	if program.ID == "" || program.OwnerID == "" || program.WorkoutsRef == "" {
		return errors.Wrap(repository.ErrMissingFields, "program requires id, ownerId and workoutsRef")
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, program); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateKey
		}
		return errors.Wrapf(err, "insert program %s", program.ID)
	}
	return nil
}

// GetByID retrieves a single program owned by ownerID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, ownerID, programID string) (*domain.Program, error) {
	var program domain.Program
	filter := bson.M{"_id": programID, "ownerId": ownerID}
	err := r.collection.FindOne(ctx, filter).Decode(&program)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find program %s", programID)
	}
	return &program, nil
}

// ListByOwner returns the owner's most recent programs, newest first.
func (r *mongoProgramRepository) ListByOwner(ctx context.Context, ownerID string, limit int64) ([]domain.Program, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	return r.find(ctx, bson.M{"ownerId": ownerID}, findOptions)
}

// ListActive returns every program whose current day still advances.
func (r *mongoProgramRepository) ListActive(ctx context.Context) ([]domain.Program, error) {
	return r.find(ctx, bson.M{"status": domain.ProgramActive}, options.Find())
}

func (r *mongoProgramRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Program, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find programs")
	}
	defer cursor.Close(ctx)

	programs := []domain.Program{}
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, errors.Wrap(err, "decode programs")
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return programs, nil
}

// Update writes the mutable execution state of a program. Phase structure, owner and
// workoutsRef are fixed at creation and are not touched here.
func (r *mongoProgramRepository) Update(ctx context.Context, program *domain.Program) error {
	if program.ID == "" {
		return errors.Wrap(repository.ErrMissingFields, "program ID is required for update")
	}

	program.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": program.ID, "ownerId": program.OwnerID}
	updateDoc := bson.M{
		"$set": bson.M{
			"name":              program.Name,
			"status":            program.Status,
			"currentDay":        program.CurrentDay,
			"pausedDuration":    program.PausedDuration,
			"pausedAt":          program.PausedAt,
			"totalWorkouts":     program.TotalWorkouts,
			"completedWorkouts": program.CompletedWorkouts,
			"adherenceRate":     program.AdherenceRate,
			"updatedAt":         program.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return errors.Wrapf(err, "update program %s", program.ID)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProgramIndexes creates necessary indexes. Call during startup.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// owner's programs, newest first
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "workoutsRef", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return errors.Wrapf(err, "create indexes for %s", collection.Name())
}
