package command

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
)

// OverdueSweeper bulk-expires overdue records. The Bun repository implements
// it; stores without bulk support can run per-record transitions instead.
type OverdueSweeper interface {
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}

// InviteExpireSweepInput runs a background expiry pass. Cutoff defaults to
// the current clock reading.
type InviteExpireSweepInput struct {
	Cutoff time.Time
	Result *InviteExpireSweepResult
}

// Type implements gocommand.Message.
func (InviteExpireSweepInput) Type() string {
	return "command.invite.expire_sweep"
}

// Validate implements gocommand.Message.
func (InviteExpireSweepInput) Validate() error {
	return nil
}

// InviteExpireSweepResult reports how many records the sweep expired.
type InviteExpireSweepResult struct {
	Expired int64
}

// InviteExpireSweepCommand flips overdue non-terminal records to expired.
// Validation already expires overdue records on contact; the sweep converges
// the ones nobody touches.
type InviteExpireSweepCommand struct {
	sweeper OverdueSweeper
	clock   types.Clock
	sink    types.ActivitySink
	hooks   types.Hooks
	logger  types.Logger
}

// ExpireSweepCommandConfig holds dependencies for the sweep.
type ExpireSweepCommandConfig struct {
	Sweeper  OverdueSweeper
	Clock    types.Clock
	Activity types.ActivitySink
	Hooks    types.Hooks
	Logger   types.Logger
}

// NewInviteExpireSweepCommand constructs the sweep handler.
func NewInviteExpireSweepCommand(cfg ExpireSweepCommandConfig) *InviteExpireSweepCommand {
	return &InviteExpireSweepCommand{
		sweeper: cfg.Sweeper,
		clock:   safeClock(cfg.Clock),
		sink:    cfg.Activity,
		hooks:   cfg.Hooks,
		logger:  safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteExpireSweepInput] = (*InviteExpireSweepCommand)(nil)

// Execute expires everything overdue at the cutoff.
func (c *InviteExpireSweepCommand) Execute(ctx context.Context, input InviteExpireSweepInput) error {
	if c.sweeper == nil {
		return types.ErrMissingRecordStore
	}
	cutoff := input.Cutoff
	if cutoff.IsZero() {
		cutoff = now(c.clock)
	}
	expired, err := c.sweeper.ExpireOverdue(ctx, cutoff)
	if err != nil {
		return err
	}
	if expired > 0 {
		record := types.ActivityRecord{
			Verb:       "invite.expire_sweep",
			ObjectType: "invitation",
			Channel:    "invites",
			Data: map[string]any{
				"expired": expired,
				"cutoff":  cutoff,
			},
			OccurredAt: now(c.clock),
		}
		logActivity(ctx, c.sink, record)
		emitActivityHook(ctx, c.hooks, record)
		c.logger.Info("invite sweep expired records", "count", expired)
	}
	if input.Result != nil {
		*input.Result = InviteExpireSweepResult{Expired: expired}
	}
	return nil
}
