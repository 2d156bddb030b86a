// Package securelink adapts go-urlkit securelink managers to go-invites
// interfaces. Hosts use it to turn a signed invite token into the clickable
// URL that goes out in the invitation email.
package securelink

import (
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-invites/pkg/types"
	urlkit "github.com/goliatone/go-urlkit/securelink"
)

// DefaultInviteRoute is the route key used when building invite links.
const DefaultInviteRoute = "invite.validate"

// Manager adapts go-urlkit securelink managers to go-invites interfaces.
type Manager struct {
	inner       urlkit.Manager
	inviteRoute string
}

// Option customizes the manager.
type Option func(*Manager)

// WithInviteRoute overrides the route key used by InviteLink.
func WithInviteRoute(route string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(route) != "" {
			m.inviteRoute = route
		}
	}
}

// NewManager builds a securelink adapter using the configurator interface.
func NewManager(cfg types.SecureLinkConfigurator, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("securelink configurator required")
	}
	inner, err := urlkit.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newManager(inner, opts...), nil
}

// WrapManager wraps an existing go-urlkit manager.
func WrapManager(inner urlkit.Manager, opts ...Option) *Manager {
	if inner == nil {
		return nil
	}
	return newManager(inner, opts...)
}

func newManager(inner urlkit.Manager, opts ...Option) *Manager {
	m := &Manager{inner: inner, inviteRoute: DefaultInviteRoute}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

var _ types.SecureLinkManager = (*Manager)(nil)

// InviteLink builds the emailable URL for a signed invite token.
func (m *Manager) InviteLink(token string) (string, error) {
	if m == nil || m.inner == nil {
		return "", errors.New("securelink manager not configured")
	}
	if strings.TrimSpace(token) == "" {
		return "", types.ErrTokenRequired
	}
	return m.Generate(m.inviteRoute, types.SecureLinkPayload{"token": token})
}

// Generate produces a signed secure link using the configured manager.
func (m *Manager) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if m == nil || m.inner == nil {
		return "", errors.New("securelink manager not configured")
	}
	return m.inner.Generate(route, toPayloads(payloads)...)
}

// Validate checks a secure link token and returns the decoded payload.
func (m *Manager) Validate(token string) (map[string]any, error) {
	if m == nil || m.inner == nil {
		return nil, errors.New("securelink manager not configured")
	}
	return m.inner.Validate(token)
}

// GetAndValidate extracts a token from the provided function and validates it.
func (m *Manager) GetAndValidate(fn func(string) string) (types.SecureLinkPayload, error) {
	if m == nil || m.inner == nil {
		return nil, errors.New("securelink manager not configured")
	}
	payload, err := m.inner.GetAndValidate(fn)
	if err != nil {
		return nil, err
	}
	return types.SecureLinkPayload(payload), nil
}

// GetExpiration exposes the manager's expiration duration.
func (m *Manager) GetExpiration() time.Duration {
	if m == nil || m.inner == nil {
		return 0
	}
	return m.inner.GetExpiration()
}

func toPayloads(payloads []types.SecureLinkPayload) []urlkit.Payload {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]urlkit.Payload, 0, len(payloads))
	for _, payload := range payloads {
		out = append(out, urlkit.Payload(payload))
	}
	return out
}
