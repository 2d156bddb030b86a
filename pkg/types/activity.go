package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pagination bounds list queries.
type Pagination struct {
	Limit  int
	Offset int
}

// ActivityFilter narrows the audit feed.
type ActivityFilter struct {
	RecordID   uuid.UUID
	ActorID    uuid.UUID
	Verbs      []string
	ObjectType string
	ObjectID   string
	Channel    string
	Source     string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// ActivityPage is one page of the audit feed.
type ActivityPage struct {
	Records    []ActivityRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// ActivityStatsFilter narrows the stats aggregation.
type ActivityStatsFilter struct {
	RecordID uuid.UUID
	Verbs    []string
	Since    *time.Time
	Until    *time.Time
}

// ActivityStats aggregates audit entries grouped by verb.
type ActivityStats struct {
	Total  int
	ByVerb map[string]int
}

// ActivityRepository extends the sink with read helpers for admin surfaces.
type ActivityRepository interface {
	ActivitySink
	ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
	ActivityStats(ctx context.Context, filter ActivityStatsFilter) (ActivityStats, error)
}

// InviteInventoryFilter narrows the invitation listing.
type InviteInventoryFilter struct {
	States     []InvitationState
	Email      string
	ExpiringBy *time.Time
	Pagination Pagination
}

// InviteInventoryPage is one page of invitation records.
type InviteInventoryPage struct {
	Records    []InvitationRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// InviteInventoryRepository lists invitation records for admin dashboards.
type InviteInventoryRepository interface {
	ListInvites(ctx context.Context, filter InviteInventoryFilter) (InviteInventoryPage, error)
}
