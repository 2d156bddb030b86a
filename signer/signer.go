// Package signer implements the RS256 token codec used for magic links. It
// owns the cryptographic half of validation (shape, signature, issuer and
// audience, embedded expiry); lifecycle enforcement lives in validator.
package signer

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// DefaultLeeway is the clock-skew tolerance applied to expiry-adjacent
// checks only.
const DefaultLeeway = 60 * time.Second

const signingAlgorithm = "RS256"

// Config defines how tokens are signed and verified. PublicKey is always
// required; PrivateKey may be omitted for verify-only deployments.
type Config struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	Issuer     string
	Subject    string
	Audience   string
	KeyID      string
	Leeway     time.Duration
	Clock      types.Clock
}

// Signer signs and verifies invite tokens with a deployment keypair.
type Signer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	subject    string
	audience   string
	keyID      string
	leeway     time.Duration
	clock      types.Clock
}

var _ types.TokenSigner = (*Signer)(nil)

// inviteClaims is the wire representation used for JWT encoding.
type inviteClaims struct {
	jwt.RegisteredClaims
	RecordID     string `json:"record_id"`
	Email        string `json:"email"`
	CompanyName  string `json:"company_name,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	InvitedBy    string `json:"invited_by,omitempty"`
	AllowedUses  int    `json:"allowed_uses"`
	InitialState string `json:"initial_state,omitempty"`
}

// New constructs a Signer. Missing key material is a configuration error
// surfaced at construction, never per call.
func New(cfg Config) (*Signer, error) {
	if cfg.PublicKey == nil {
		return nil, types.ErrMissingSigningKey
	}
	if strings.TrimSpace(cfg.Issuer) == "" || strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("signer: issuer and audience required")
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Signer{
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		issuer:     strings.TrimSpace(cfg.Issuer),
		subject:    strings.TrimSpace(cfg.Subject),
		audience:   strings.TrimSpace(cfg.Audience),
		keyID:      strings.TrimSpace(cfg.KeyID),
		leeway:     leeway,
		clock:      clock,
	}, nil
}

// Sign produces the compact token string for the claim set.
func (s *Signer) Sign(claims types.InviteClaims) (string, error) {
	if s.privateKey == nil {
		return "", types.ErrMissingSigningKey
	}
	wire := &inviteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    claims.Issuer,
			Subject:   claims.Subject,
			Audience:  jwt.ClaimStrings{claims.Audience},
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.TokenID,
		},
		Email:        claims.Email,
		CompanyName:  claims.CompanyName,
		ContactName:  claims.ContactName,
		InvitedBy:    claims.InvitedBy,
		AllowedUses:  claims.AllowedUses,
		InitialState: string(claims.InitialState),
	}
	if claims.RecordID != uuid.Nil {
		wire.RecordID = claims.RecordID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, wire)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}
	return token.SignedString(s.privateKey)
}

// Verify checks the token shape, signature, issuer/audience, and embedded
// expiry, and returns the decoded claims. Lifecycle state is not consulted.
func (s *Signer) Verify(token string) (types.InviteClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.InviteClaims{}, types.ErrTokenRequired
	}
	if strings.Count(token, ".") != 2 {
		return types.InviteClaims{}, types.ErrTokenMalformed
	}

	var parsed inviteClaims
	// Claims validation stays manual so expiry maps to its own error code
	// and skew tolerance applies to expiry only.
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return types.InviteClaims{}, mapJWTError(err)
	}

	if parsed.Issuer != s.issuer {
		return types.InviteClaims{}, types.ErrSignatureInvalid
	}
	if !audienceContains(parsed.Audience, s.audience) {
		return types.InviteClaims{}, types.ErrSignatureInvalid
	}
	if parsed.ID == "" || parsed.ExpiresAt == nil {
		return types.InviteClaims{}, types.ErrClaimsIncomplete
	}

	now := s.clock.Now()
	if now.After(parsed.ExpiresAt.Time.Add(s.leeway)) {
		return types.InviteClaims{}, types.ErrTokenExpired
	}

	return fromWire(parsed), nil
}

// PeekRecordID extracts the record identifier from an unverified token for
// logging only. It must never feed an authorization decision.
func PeekRecordID(token string) (uuid.UUID, error) {
	var parsed inviteClaims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), &parsed); err != nil {
		return uuid.Nil, types.ErrTokenMalformed
	}
	id, err := uuid.Parse(parsed.RecordID)
	if err != nil {
		return uuid.Nil, types.ErrClaimsIncomplete
	}
	return id, nil
}

// ParsePrivateKeyPEM decodes PKCS#1/PKCS#8 RSA private key material.
func ParsePrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, types.ErrMissingSigningKey
	}
	return key, nil
}

// ParsePublicKeyPEM decodes PEM-encoded RSA public key material.
func ParsePublicKeyPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, types.ErrMissingSigningKey
	}
	return key, nil
}

func fromWire(parsed inviteClaims) types.InviteClaims {
	claims := types.InviteClaims{
		Issuer:       parsed.Issuer,
		Subject:      parsed.Subject,
		TokenID:      parsed.ID,
		Email:        parsed.Email,
		CompanyName:  parsed.CompanyName,
		ContactName:  parsed.ContactName,
		InvitedBy:    parsed.InvitedBy,
		AllowedUses:  parsed.AllowedUses,
		InitialState: types.InvitationState(parsed.InitialState),
	}
	if len(parsed.Audience) > 0 {
		claims.Audience = parsed.Audience[0]
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	if id, err := uuid.Parse(parsed.RecordID); err == nil {
		claims.RecordID = id
	}
	return claims
}

// mapJWTError translates jwt library failures into the engine error set.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return types.ErrTokenMalformed
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
		return types.ErrSignatureInvalid
	}
	return types.ErrSignatureInvalid
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
