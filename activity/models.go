package activity

import (
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LogEntry models the persisted row in invite_activity.
type LogEntry struct {
	bun.BaseModel `bun:"table:invite_activity"`

	ID         uuid.UUID      `bun:",pk,type:uuid"`
	RecordID   uuid.UUID      `bun:"record_id,type:uuid"`
	ActorID    uuid.UUID      `bun:"actor_id,type:uuid"`
	Verb       string         `bun:"verb"`
	ObjectType string         `bun:"object_type"`
	ObjectID   string         `bun:"object_id"`
	Channel    string         `bun:"channel"`
	Source     string         `bun:"source"`
	Data       map[string]any `bun:"data,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at"`
}

// RegisterModels registers the package models with the persistence client.
func RegisterModels() {
	persistence.RegisterModel((*LogEntry)(nil))
}
