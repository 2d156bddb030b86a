package records

import (
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted invitation_links row. The token itself is
// never stored; token_hash is the only lookup key.
type Record struct {
	bun.BaseModel `bun:"table:invitation_links"`

	ID                   uuid.UUID  `bun:"id,pk,type:uuid"`
	TokenHash            string     `bun:"token_hash,notnull,unique"`
	State                string     `bun:"state,notnull"`
	IssuedAt             time.Time  `bun:"issued_at,notnull"`
	ExpiresAt            time.Time  `bun:"expires_at,notnull"`
	ValidatedAt          *time.Time `bun:"validated_at,nullzero"`
	ConsumedAt           *time.Time `bun:"consumed_at,nullzero"`
	RevokedAt            *time.Time `bun:"revoked_at,nullzero"`
	RevokedBy            string     `bun:"revoked_by,nullzero"`
	RevocationReason     string     `bun:"revocation_reason,nullzero"`
	ValidationAttempts   int        `bun:"validation_attempts,notnull,default:0"`
	LastValidationAt     *time.Time `bun:"last_validation_at,nullzero"`
	LastValidationSource string     `bun:"last_validation_source,nullzero"`
	Email                string     `bun:"email,notnull"`
	CompanyName          string     `bun:"company_name,nullzero"`
	ContactName          string     `bun:"contact_name,nullzero"`
	CreatedAt            time.Time  `bun:"created_at"`
	UpdatedAt            time.Time  `bun:"updated_at"`
}

// RegisterModels registers the package models with the persistence client
// so fixtures and schema validation can see them.
func RegisterModels() {
	persistence.RegisterModel((*Record)(nil))
}
