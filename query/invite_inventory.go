// Package query exposes read-side helpers for admin dashboards: the
// invitation inventory and the audit feed.
package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
)

const (
	defaultInventoryLimit = 50
	maxInventoryLimit     = 200
)

// InviteInventoryQuery wraps the inventory repository and normalizes filters
// for admin dashboards.
type InviteInventoryQuery struct {
	repo   types.InviteInventoryRepository
	logger types.Logger
}

// NewInviteInventoryQuery constructs the query helper.
func NewInviteInventoryQuery(repo types.InviteInventoryRepository, logger types.Logger) *InviteInventoryQuery {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &InviteInventoryQuery{repo: repo, logger: logger}
}

var _ gocommand.Querier[types.InviteInventoryFilter, types.InviteInventoryPage] = (*InviteInventoryQuery)(nil)

// Query delegates to the configured repository after normalizing filters.
func (q *InviteInventoryQuery) Query(ctx context.Context, filter types.InviteInventoryFilter) (types.InviteInventoryPage, error) {
	if q.repo == nil {
		return types.InviteInventoryPage{}, types.ErrMissingInventoryRepository
	}
	normalized := normalizeInventoryFilter(filter)
	return q.repo.ListInvites(ctx, normalized)
}

func normalizeInventoryFilter(filter types.InviteInventoryFilter) types.InviteInventoryFilter {
	out := filter
	if out.Pagination.Limit <= 0 {
		out.Pagination.Limit = defaultInventoryLimit
	}
	if out.Pagination.Limit > maxInventoryLimit {
		out.Pagination.Limit = maxInventoryLimit
	}
	if out.Pagination.Offset < 0 {
		out.Pagination.Offset = 0
	}
	return out
}
