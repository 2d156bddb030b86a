// Package issuer builds and signs invitation tokens. Issuance is pure: the
// caller persists the returned record, so the whole path unit-tests without
// a database.
package issuer

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-invites/pkg/token"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

const (
	// DefaultExpiryDays applies when a request leaves ExpiryDays at zero.
	DefaultExpiryDays = 7
	// MinExpiryDays and MaxExpiryDays bound the issuance window.
	MinExpiryDays = 1
	MaxExpiryDays = 30

	// allowedUses is fixed: this token class is single-use.
	allowedUses = 1
)

var (
	// ErrEmailRequired indicates the issuance request omitted the email.
	ErrEmailRequired = errors.New("go-invites: invite requires email")
	// ErrEmailInvalid indicates the email failed the syntactic check.
	ErrEmailInvalid = errors.New("go-invites: invite email invalid")
	// ErrExpiryOutOfRange indicates ExpiryDays fell outside [1, 30].
	ErrExpiryOutOfRange = errors.New("go-invites: expiry days out of range")
)

// Config wires the issuer. Issuer/Subject/Audience are fixed per deployment
// and stamped into every claim set.
type Config struct {
	Signer   types.TokenSigner
	Clock    types.Clock
	IDGen    types.IDGenerator
	Issuer   string
	Subject  string
	Audience string
	// DefaultExpiryDays overrides the package default when non-zero.
	DefaultExpiryDays int
}

// Issuer produces signed tokens plus the record fields to persist.
type Issuer struct {
	signer        types.TokenSigner
	clock         types.Clock
	idGen         types.IDGenerator
	issuer        string
	subject       string
	audience      string
	defaultExpiry int
}

// IssueRequest carries the issuance input. Display metadata rides along in
// the claims for convenience and is never trusted on validation.
type IssueRequest struct {
	Email       string
	CompanyName string
	ContactName string
	InvitedBy   string
	ExpiryDays  int
	// RecordID pins the claims to an existing record on reissue. Zero mints
	// a fresh identifier.
	RecordID uuid.UUID
}

// IssueResult is everything the caller needs: the token string for the
// link, and the record to persist with state created.
type IssueResult struct {
	Token  string
	Record types.InvitationRecord
	Claims types.InviteClaims
}

// New constructs an Issuer. A missing signer is a configuration fault.
func New(cfg Config) (*Issuer, error) {
	if cfg.Signer == nil {
		return nil, types.ErrMissingSigner
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	defaultExpiry := cfg.DefaultExpiryDays
	if defaultExpiry == 0 {
		defaultExpiry = DefaultExpiryDays
	}
	if defaultExpiry < MinExpiryDays || defaultExpiry > MaxExpiryDays {
		return nil, ErrExpiryOutOfRange
	}
	return &Issuer{
		signer:        cfg.Signer,
		clock:         clock,
		idGen:         idGen,
		issuer:        strings.TrimSpace(cfg.Issuer),
		subject:       strings.TrimSpace(cfg.Subject),
		audience:      strings.TrimSpace(cfg.Audience),
		defaultExpiry: defaultExpiry,
	}, nil
}

// Issue validates the request, builds and signs the claim set, and derives
// the storage hash. No side effects beyond the computation.
func (i *Issuer) Issue(req IssueRequest) (*IssueResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	expiryDays := req.ExpiryDays
	if expiryDays == 0 {
		expiryDays = i.defaultExpiry
	}
	if expiryDays < MinExpiryDays || expiryDays > MaxExpiryDays {
		return nil, ErrExpiryOutOfRange
	}

	issuedAt := i.clock.Now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(time.Duration(expiryDays) * 24 * time.Hour)
	recordID := req.RecordID
	if recordID == uuid.Nil {
		recordID = i.idGen.UUID()
	}

	claims := types.InviteClaims{
		Issuer:       i.issuer,
		Subject:      i.subject,
		Audience:     i.audience,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		TokenID:      i.idGen.UUID().String(),
		RecordID:     recordID,
		Email:        email,
		CompanyName:  strings.TrimSpace(req.CompanyName),
		ContactName:  strings.TrimSpace(req.ContactName),
		InvitedBy:    strings.TrimSpace(req.InvitedBy),
		AllowedUses:  allowedUses,
		InitialState: types.InvitationStateCreated,
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &IssueResult{
		Token:  signed,
		Claims: claims,
		Record: types.InvitationRecord{
			ID:          recordID,
			TokenHash:   token.Hash(signed),
			State:       types.InvitationStateCreated,
			IssuedAt:    issuedAt,
			ExpiresAt:   expiresAt,
			Email:       email,
			CompanyName: claims.CompanyName,
			ContactName: claims.ContactName,
		},
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrEmailInvalid
	}
	return email, nil
}
