package command

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-invites/issuer"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// InviteReissueInput replaces the token on an existing record. The record ID
// and its metadata survive; hash, window, and counters start over. Consumed
// records never reissue.
type InviteReissueInput struct {
	RecordID   uuid.UUID
	ExpiryDays int
	Actor      types.ActorRef
	Result     *InviteReissueResult
}

// Type implements gocommand.Message.
func (InviteReissueInput) Type() string {
	return "command.invite.reissue"
}

// Validate implements gocommand.Message.
func (input InviteReissueInput) Validate() error {
	switch {
	case input.RecordID == uuid.Nil:
		return ErrRecordIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// InviteReissueResult exposes the fresh token and the reset record.
type InviteReissueResult struct {
	Token     string
	Link      string
	Record    *types.InvitationRecord
	ExpiresAt time.Time
}

// InviteReissueCommand mints a replacement token for an existing record.
type InviteReissueCommand struct {
	issuer      TokenIssuer
	store       types.RecordStore
	clock       types.Clock
	sink        types.ActivitySink
	hooks       types.Hooks
	logger      types.Logger
	featureGate featuregate.FeatureGate
	links       LinkBuilder
}

// ReissueCommandConfig holds dependencies for the reissue flow.
type ReissueCommandConfig struct {
	Issuer      TokenIssuer
	Store       types.RecordStore
	Clock       types.Clock
	Activity    types.ActivitySink
	Hooks       types.Hooks
	Logger      types.Logger
	FeatureGate featuregate.FeatureGate
	Links       LinkBuilder
}

// NewInviteReissueCommand constructs the reissue handler.
func NewInviteReissueCommand(cfg ReissueCommandConfig) *InviteReissueCommand {
	return &InviteReissueCommand{
		issuer:      cfg.Issuer,
		store:       cfg.Store,
		clock:       safeClock(cfg.Clock),
		sink:        cfg.Activity,
		hooks:       cfg.Hooks,
		logger:      safeLogger(cfg.Logger),
		featureGate: cfg.FeatureGate,
		links:       cfg.Links,
	}
}

var _ gocommand.Commander[InviteReissueInput] = (*InviteReissueCommand)(nil)

// Execute mints the replacement token and resets the row in one guarded
// update. The superseded token dies with the old hash.
func (c *InviteReissueCommand) Execute(ctx context.Context, input InviteReissueInput) error {
	if c.issuer == nil {
		return types.ErrMissingSigner
	}
	if c.store == nil {
		return types.ErrMissingRecordStore
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if enabled, err := featureEnabled(ctx, c.featureGate, featureInvitesReissue, input.Actor); err != nil {
		return err
	} else if !enabled {
		return ErrReissueDisabled
	}

	current, err := c.store.GetByID(ctx, input.RecordID)
	if err != nil {
		return err
	}
	if current.State == types.InvitationStateConsumed {
		return types.ErrAlreadyConsumed
	}

	issued, err := c.issuer.Issue(issuer.IssueRequest{
		Email:       current.Email,
		CompanyName: current.CompanyName,
		ContactName: current.ContactName,
		InvitedBy:   input.Actor.ID.String(),
		ExpiryDays:  input.ExpiryDays,
		RecordID:    current.ID,
	})
	if err != nil {
		return err
	}

	updated, err := c.store.Reissue(ctx, current.ID, types.ReissueStamp{
		TokenHash: issued.Record.TokenHash,
		IssuedAt:  issued.Record.IssuedAt,
		ExpiresAt: issued.Record.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, types.ErrRecordConflict) {
			return explainTerminal(ctx, c.store, current.ID)
		}
		return err
	}

	link := ""
	if c.links != nil {
		link, err = c.links.InviteLink(issued.Token)
		if err != nil {
			return err
		}
	}

	at := now(c.clock)
	record := types.ActivityRecord{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		Verb:       "invite.reissue",
		ObjectType: "invitation",
		ObjectID:   updated.ID.String(),
		Channel:    "invites",
		Data: map[string]any{
			"email":      updated.Email,
			"expires_at": updated.ExpiresAt,
			"from":       string(current.State),
		},
		OccurredAt: at,
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)
	emitStateChangeHook(ctx, c.hooks, types.StateChangeEvent{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		FromState:  current.State,
		ToState:    updated.State,
		OccurredAt: at,
	})

	c.logger.Info("invite reissued", "record_id", updated.ID.String())

	if input.Result != nil {
		*input.Result = InviteReissueResult{
			Token:     issued.Token,
			Link:      link,
			Record:    updated,
			ExpiresAt: updated.ExpiresAt,
		}
	}
	return nil
}
