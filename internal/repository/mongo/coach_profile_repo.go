package mongo

import (
	"context"
	stderrors "errors"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const coachProfileCollectionName = "coach_profiles"

// mongoCoachProfileRepository implements the repository.CoachProfileRepository interface using MongoDB.
type mongoCoachProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoCoachProfileRepository creates a new instance of mongoCoachProfileRepository.
// It expects a connected *mongo.Database instance.
func NewMongoCoachProfileRepository(db *mongo.Database) repository.CoachProfileRepository {
	return &mongoCoachProfileRepository{
		collection: db.Collection(coachProfileCollectionName),
	}
}

// GetByOwnerAndCoach retrieves the profile binding an owner to a coach.
func (r *mongoCoachProfileRepository) GetByOwnerAndCoach(ctx context.Context, ownerID, coachID string) (*domain.CoachProfile, error) {
	var profile domain.CoachProfile
	filter := bson.M{"ownerId": ownerID, "coachId": coachID}

	err := r.collection.FindOne(ctx, filter).Decode(&profile)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coach profile %s/%s", ownerID, coachID)
	}
	return &profile, nil
}

// Upsert creates or replaces the profile for (ownerId, coachId).
func (r *mongoCoachProfileRepository) Upsert(ctx context.Context, profile *domain.CoachProfile) error {
	if profile.OwnerID == "" || profile.CoachID == "" {
		return errors.Wrap(repository.ErrMissingFields, "coach profile requires ownerId and coachId")
	}
	now := time.Now().UTC()
	profile.UpdatedAt = now

	filter := bson.M{"ownerId": profile.OwnerID, "coachId": profile.CoachID}
	update := bson.M{
		"$set": bson.M{
			"displayName": profile.DisplayName,
			"methodology": profile.Methodology,
			"personaKey":  profile.PersonaKey,
			"timeZone":    profile.TimeZone,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert coach profile %s/%s", profile.OwnerID, profile.CoachID)
	}
	return nil
}

// EnsureCoachProfileIndexes creates necessary indexes for the coach_profiles collection.
// Call this once during application startup.
func EnsureCoachProfileIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "coachId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return errors.Wrapf(err, "create indexes for %s", collection.Name())
}
