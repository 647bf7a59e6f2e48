package domain

import (
	"time"
)

// RunStatus type for generation run lifecycle
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// GenerationRun is the operator-facing audit record of one pipeline execution.
type GenerationRun struct {
	ID             string               `bson:"_id" json:"id"`
	OwnerID        string               `bson:"ownerId" json:"ownerId"`
	CoachID        string               `bson:"coachId" json:"coachId"`
	ConversationID string               `bson:"conversationId,omitempty" json:"conversationId,omitempty"`
	Status         RunStatus            `bson:"status" json:"status"`
	Stage          string               `bson:"stage,omitempty" json:"stage,omitempty"`
	ProgramID      string               `bson:"programId,omitempty" json:"programId,omitempty"`
	ErrorKind      string               `bson:"errorKind,omitempty" json:"errorKind,omitempty"`
	Error          string               `bson:"error,omitempty" json:"error,omitempty"`
	Issues         []NormalizationIssue `bson:"issues,omitempty" json:"issues,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	StartedAt      *time.Time           `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt     *time.Time           `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}
