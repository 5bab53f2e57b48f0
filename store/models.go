// Package store persists session activity and a local mirror of provider
// users using Bun. The provider stays the source of truth; the mirror
// exists so application queries can join against users without a network
// round trip.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityModel is the Bun model for the session activity audit trail.
type ActivityModel struct {
	bun.BaseModel `bun:"table:session_activity"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	UserID     string         `bun:"user_id"`
	Email      string         `bun:"email"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
	CreatedAt  time.Time      `bun:"created_at,default:current_timestamp"`
}

// UserModel is the Bun model for the local user mirror.
type UserModel struct {
	bun.BaseModel `bun:"table:session_users"`

	ID        string         `bun:"id,pk"`
	Email     string         `bun:"email,notnull"`
	Role      string         `bun:"role"`
	Metadata  map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt time.Time      `bun:"created_at,default:current_timestamp"`
	UpdatedAt time.Time      `bun:"updated_at,default:current_timestamp"`
	LastSeen  time.Time      `bun:"last_seen"`
}
