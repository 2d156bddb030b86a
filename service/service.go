// Package service is the entry point for go-invites. It wires the signer,
// the record store, and the lifecycle commands, and translates engine
// sentinels into transport-ready rich errors.
package service

import (
	"context"

	"github.com/goliatone/go-invites/command"
	"github.com/goliatone/go-invites/issuer"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/goliatone/go-invites/query"
	"github.com/goliatone/go-invites/validator"

	featuregate "github.com/goliatone/go-featuregate/gate"
)

// Service wires the invitation lifecycle engine for host applications.
type Service struct {
	cfg       Config
	commands  Commands
	queries   Queries
	issuer    *issuer.Issuer
	validator *validator.Validator
}

// Commands exposes the service command handlers.
type Commands struct {
	InviteCreate   *command.InviteCreateCommand
	InviteValidate *command.InviteValidateCommand
	InviteConsume  *command.InviteConsumeCommand
	InviteRevoke   *command.InviteRevokeCommand
	InviteReissue  *command.InviteReissueCommand
	InviteDelivery *command.InviteDeliveryCommand
	ExpireSweep    *command.InviteExpireSweepCommand
}

// Queries exposes the service read-side handlers.
type Queries struct {
	InviteInventory *query.InviteInventoryQuery
	ActivityFeed    *query.ActivityFeedQuery
	ActivityStats   *query.ActivityStatsQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB backed stores, hooks, feature gates, etc.).
type Config struct {
	Signer      types.TokenSigner
	Store       types.RecordStore
	Sweeper     command.OverdueSweeper
	ActivitySink types.ActivitySink
	Hooks       types.Hooks
	Clock       types.Clock
	IDGenerator types.IDGenerator
	Logger      types.Logger
	Policy      types.TransitionPolicy
	FeatureGate featuregate.FeatureGate

	// Links builds the emailable URL around signed tokens. Optional; when
	// absent, command results carry the bare token only.
	Links command.LinkBuilder

	// ActivityRepository enables the read-side activity queries. When the
	// configured ActivitySink also implements the repository interface it is
	// picked up automatically.
	ActivityRepository types.ActivityRepository
	// InventoryRepository enables the invitation inventory query. When the
	// configured Store also implements the interface it is picked up
	// automatically.
	InventoryRepository types.InviteInventoryRepository

	// Issuer, Subject, and Audience are stamped into every claim set.
	Issuer   string
	Subject  string
	Audience string

	// DefaultExpiryDays applies when issuance requests leave expiry at zero.
	DefaultExpiryDays int
	// MaxValidationAttempts caps validation calls per record.
	MaxValidationAttempts int
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) (*Service, error) {
	norm := normalizeConfig(cfg)
	if norm.Signer == nil {
		return nil, types.ErrMissingSigner
	}
	if norm.Store == nil {
		return nil, types.ErrMissingRecordStore
	}

	iss, err := issuer.New(issuer.Config{
		Signer:            norm.Signer,
		Clock:             norm.Clock,
		IDGen:             norm.IDGenerator,
		Issuer:            norm.Issuer,
		Subject:           norm.Subject,
		Audience:          norm.Audience,
		DefaultExpiryDays: norm.DefaultExpiryDays,
	})
	if err != nil {
		return nil, err
	}
	val, err := validator.New(validator.Config{
		Signer:      norm.Signer,
		Store:       norm.Store,
		Clock:       norm.Clock,
		Logger:      norm.Logger,
		MaxAttempts: norm.MaxValidationAttempts,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{cfg: norm, issuer: iss, validator: val}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s, nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.Policy == nil {
		cfg.Policy = types.DefaultTransitionPolicy()
	}
	if cfg.Sweeper == nil {
		if sweeper, ok := cfg.Store.(command.OverdueSweeper); ok {
			cfg.Sweeper = sweeper
		}
	}
	if cfg.ActivityRepository == nil {
		if repo, ok := cfg.ActivitySink.(types.ActivityRepository); ok {
			cfg.ActivityRepository = repo
		}
	}
	if cfg.InventoryRepository == nil {
		if repo, ok := cfg.Store.(types.InviteInventoryRepository); ok {
			cfg.InventoryRepository = repo
		}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the read-side facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil && s.cfg.Signer != nil && s.cfg.Store != nil
}

// HealthCheck surfaces missing configuration to upstream transports.
func (s *Service) HealthCheck(ctx context.Context) error {
	if !s.Ready() {
		return types.ErrServiceNotReady
	}
	return nil
}

// ActivitySink returns the configured sink so transports can emit auxiliary
// activity records through the same channel.
func (s *Service) ActivitySink() types.ActivitySink {
	if s == nil {
		return nil
	}
	return s.cfg.ActivitySink
}

func (s *Service) buildCommands() Commands {
	return Commands{
		InviteCreate: command.NewInviteCreateCommand(command.CreateCommandConfig{
			Issuer:      s.issuer,
			Store:       s.cfg.Store,
			Clock:       s.cfg.Clock,
			Activity:    s.cfg.ActivitySink,
			Hooks:       s.cfg.Hooks,
			Logger:      s.cfg.Logger,
			FeatureGate: s.cfg.FeatureGate,
			Links:       s.cfg.Links,
		}),
		InviteValidate: command.NewInviteValidateCommand(command.ValidateCommandConfig{
			Validator: s.validator,
			Clock:     s.cfg.Clock,
			Activity:  s.cfg.ActivitySink,
			Hooks:     s.cfg.Hooks,
			Logger:    s.cfg.Logger,
		}),
		InviteConsume: command.NewInviteConsumeCommand(command.ConsumeCommandConfig{
			Store:    s.cfg.Store,
			Clock:    s.cfg.Clock,
			Activity: s.cfg.ActivitySink,
			Hooks:    s.cfg.Hooks,
			Logger:   s.cfg.Logger,
		}),
		InviteRevoke: command.NewInviteRevokeCommand(command.RevokeCommandConfig{
			Store:    s.cfg.Store,
			Clock:    s.cfg.Clock,
			Activity: s.cfg.ActivitySink,
			Hooks:    s.cfg.Hooks,
			Logger:   s.cfg.Logger,
		}),
		InviteReissue: command.NewInviteReissueCommand(command.ReissueCommandConfig{
			Issuer:      s.issuer,
			Store:       s.cfg.Store,
			Clock:       s.cfg.Clock,
			Activity:    s.cfg.ActivitySink,
			Hooks:       s.cfg.Hooks,
			Logger:      s.cfg.Logger,
			FeatureGate: s.cfg.FeatureGate,
			Links:       s.cfg.Links,
		}),
		InviteDelivery: command.NewInviteDeliveryCommand(command.DeliveryCommandConfig{
			Store:    s.cfg.Store,
			Policy:   s.cfg.Policy,
			Clock:    s.cfg.Clock,
			Activity: s.cfg.ActivitySink,
			Hooks:    s.cfg.Hooks,
			Logger:   s.cfg.Logger,
		}),
		ExpireSweep: command.NewInviteExpireSweepCommand(command.ExpireSweepCommandConfig{
			Sweeper:  s.cfg.Sweeper,
			Clock:    s.cfg.Clock,
			Activity: s.cfg.ActivitySink,
			Hooks:    s.cfg.Hooks,
			Logger:   s.cfg.Logger,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		InviteInventory: query.NewInviteInventoryQuery(s.cfg.InventoryRepository, s.cfg.Logger),
		ActivityFeed:    query.NewActivityFeedQuery(s.cfg.ActivityRepository),
		ActivityStats:   query.NewActivityStatsQuery(s.cfg.ActivityRepository),
	}
}
