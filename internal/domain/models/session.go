// internal/domain/models/session.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session records one user working through one runbook.
//
// RunbookID and UserID are plain references; nothing at this layer checks
// that the referenced documents exist.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RunbookID primitive.ObjectID `bson:"runbook_id" json:"runbook_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Status    SessionStatus      `bson:"status" json:"status"` // active | paused | completed | failed

	// Progress through the runbook's decision tree, as reported by the caller.
	CurrentNodeID string   `bson:"current_node_id,omitempty" json:"current_node_id,omitempty"`
	ExecutionPath []string `bson:"execution_path,omitempty" json:"execution_path,omitempty"`
	ContainerID   string   `bson:"container_id,omitempty" json:"container_id,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
