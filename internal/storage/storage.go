package storage

import (
	"context"
	"errors"
	"path"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ObjectStore defines the interface for object storage operations.
type ObjectStore interface {
	// PutJSON serializes v and stores it under objectKey, replacing any previous object.
	PutJSON(ctx context.Context, objectKey string, v any) error

	// GetJSON loads the object stored under objectKey into v.
	GetJSON(ctx context.Context, objectKey string, v any) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

var (
	ErrObjectNotFound = errors.New("object not found in storage")
)

// WorkoutPlanKey is the object key of a program's workout-detail blob.
func WorkoutPlanKey(ownerID, programID string) string {
	return path.Join("programs", ownerID, programID, "workouts.json")
}
