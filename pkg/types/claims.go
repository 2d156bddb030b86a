package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InviteClaims is the typed claim set embedded in the signed token. Fields
// beyond RecordID are display metadata; authorization decisions always come
// from the stored InvitationRecord.
type InviteClaims struct {
	Issuer    string
	Subject   string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// TokenID is the jti: random, collision-resistant, used for tracing.
	// Lookup uses the token hash, never the jti.
	TokenID  string
	RecordID uuid.UUID

	Email        string
	CompanyName  string
	ContactName  string
	InvitedBy    string
	AllowedUses  int
	InitialState InvitationState
}

// Complete reports whether the claims required for validation are present
// and well-typed. Optional display fields are not checked.
func (c InviteClaims) Complete() bool {
	return c.RecordID != uuid.Nil && strings.TrimSpace(c.Email) != ""
}

// ExpiredAt reports whether the embedded expiry has passed at the given
// instant. Pure helper: it never consults stored state.
func (c InviteClaims) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// TokenSigner signs and verifies the compact token string. Verify performs
// the cryptographic checks only (shape, signature, issuer/audience, embedded
// expiry); state-machine enforcement stays with the validator.
type TokenSigner interface {
	Sign(claims InviteClaims) (string, error)
	Verify(token string) (InviteClaims, error)
}
