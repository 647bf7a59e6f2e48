package domain

import (
	"time"
)

// CoachProfile binds an owner to the coach configuration that generates their programs.
// A run cannot start without one.
type CoachProfile struct {
	ID          string    `bson:"_id" json:"id"`
	OwnerID     string    `bson:"ownerId" json:"ownerId"`
	CoachID     string    `bson:"coachId" json:"coachId"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Methodology string    `bson:"methodology,omitempty" json:"methodology,omitempty"`
	PersonaKey  string    `bson:"personaKey,omitempty" json:"personaKey,omitempty"` // selects the coaching voice prompt
	TimeZone    string    `bson:"timeZone" json:"timeZone"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RequirementBag is the loosely-structured requirement set collected by the conversational front-end.
type RequirementBag map[string]any

// Role type to distinguish between API callers
type Role string

const (
	RoleAthlete  Role = "athlete"  // owns programs
	RoleCoach    Role = "coach"    // the conversational front-end acting for an owner
	RoleOperator Role = "operator" // inspects generation runs
)
