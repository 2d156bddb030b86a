package command

import (
	"context"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-invites/issuer"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// TokenIssuer mints a signed invite token plus the record to persist.
type TokenIssuer interface {
	Issue(req issuer.IssueRequest) (*issuer.IssueResult, error)
}

// LinkBuilder turns a signed token into the clickable invite URL embedded in
// outbound mail. Optional; when absent results carry the bare token only.
type LinkBuilder interface {
	InviteLink(token string) (string, error)
}

// InviteCreateInput carries the data required to issue a new invitation.
type InviteCreateInput struct {
	Email       string
	CompanyName string
	ContactName string
	ExpiryDays  int
	Actor       types.ActorRef
	Result      *InviteCreateResult
}

// Type implements gocommand.Message.
func (InviteCreateInput) Type() string {
	return "command.invite.create"
}

// Validate implements gocommand.Message.
func (input InviteCreateInput) Validate() error {
	switch {
	case strings.TrimSpace(input.Email) == "":
		return issuer.ErrEmailRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// InviteCreateResult exposes the signed token and the persisted record.
type InviteCreateResult struct {
	Token     string
	Link      string
	Record    *types.InvitationRecord
	ExpiresAt time.Time
}

// InviteCreateCommand issues an invite and persists its record.
type InviteCreateCommand struct {
	issuer      TokenIssuer
	store       types.RecordStore
	clock       types.Clock
	sink        types.ActivitySink
	hooks       types.Hooks
	logger      types.Logger
	featureGate featuregate.FeatureGate
	links       LinkBuilder
}

// CreateCommandConfig holds dependencies for the issuance flow.
type CreateCommandConfig struct {
	Issuer      TokenIssuer
	Store       types.RecordStore
	Clock       types.Clock
	Activity    types.ActivitySink
	Hooks       types.Hooks
	Logger      types.Logger
	FeatureGate featuregate.FeatureGate
	Links       LinkBuilder
}

// NewInviteCreateCommand constructs the issuance handler.
func NewInviteCreateCommand(cfg CreateCommandConfig) *InviteCreateCommand {
	return &InviteCreateCommand{
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

var _ gocommand.Commander[InviteCreateInput] = (*InviteCreateCommand)(nil)

// Execute mints the token, persists the created record, and emits activity.
func (c *InviteCreateCommand) Execute(ctx context.Context, input InviteCreateInput) error {
	if c.issuer == nil {
		return types.ErrMissingSigner
	}
	if c.store == nil {
		return types.ErrMissingRecordStore
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if enabled, err := featureEnabled(ctx, c.featureGate, featureInvitesIssue, input.Actor); err != nil {
		return err
	} else if !enabled {
		return ErrInviteDisabled
	}

	issued, err := c.issuer.Issue(issuer.IssueRequest{
		Email:       input.Email,
		CompanyName: input.CompanyName,
		ContactName: input.ContactName,
		InvitedBy:   input.Actor.ID.String(),
		ExpiryDays:  input.ExpiryDays,
	})
	if err != nil {
		return err
	}

	created, err := c.store.Create(ctx, issued.Record)
	if err != nil {
		return err
	}

	link := ""
	if c.links != nil {
		link, err = c.links.InviteLink(issued.Token)
		if err != nil {
			return err
		}
	}

	occurredAt := now(c.clock)
	record := types.ActivityRecord{
		RecordID:   created.ID,
		ActorID:    input.Actor.ID,
		Verb:       "invite.create",
		ObjectType: "invitation",
		ObjectID:   created.ID.String(),
		Channel:    "invites",
		Data: map[string]any{
			"email":      created.Email,
			"expires_at": created.ExpiresAt,
		},
		OccurredAt: occurredAt,
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)
	emitStateChangeHook(ctx, c.hooks, types.StateChangeEvent{
		RecordID:   created.ID,
		ActorID:    input.Actor.ID,
		ToState:    created.State,
		OccurredAt: occurredAt,
	})

	c.logger.Info("invite issued", "record_id", created.ID.String(), "email", created.Email)

	if input.Result != nil {
		*input.Result = InviteCreateResult{
			Token:     issued.Token,
			Link:      link,
			Record:    created,
			ExpiresAt: created.ExpiresAt,
		}
	}
	return nil
}
