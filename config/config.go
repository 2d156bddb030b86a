// Package config loads engine configuration from the environment. Key
// material can be supplied inline (PEM or base64-wrapped PEM) or by file
// path; everything else carries defaults.
package config

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/goliatone/go-invites/signer"
)

// envConfig holds raw env values before post-parse validation.
type envConfig struct {
	PrivateKey     string `env:"INVITES_SIGNING_PRIVATE_KEY"`
	PrivateKeyFile string `env:"INVITES_SIGNING_PRIVATE_KEY_FILE"`
	PublicKey      string `env:"INVITES_SIGNING_PUBLIC_KEY"`
	PublicKeyFile  string `env:"INVITES_SIGNING_PUBLIC_KEY_FILE"`
	KeyID          string `env:"INVITES_SIGNING_KEY_ID"`

	Issuer   string `env:"INVITES_ISSUER" envDefault:"go-invites"`
	Subject  string `env:"INVITES_SUBJECT" envDefault:"supplier-invite"`
	Audience string `env:"INVITES_AUDIENCE" envDefault:"supplier"`

	ExpiryDays       int `env:"INVITES_EXPIRY_DAYS" envDefault:"7"`
	MaxAttempts      int `env:"INVITES_MAX_VALIDATION_ATTEMPTS" envDefault:"5"`
	ClockSkewSeconds int `env:"INVITES_CLOCK_SKEW_SECONDS" envDefault:"60"`
}

// Config is the parsed engine configuration. PrivateKey is optional so
// verify-only deployments can run without issuance credentials.
type Config struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	KeyID      string

	Issuer   string
	Subject  string
	Audience string

	ExpiryDays  int
	MaxAttempts int
	Leeway      time.Duration
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse invites env: %w", err)
	}

	publicPEM, err := keyMaterial(raw.PublicKey, raw.PublicKeyFile)
	if err != nil {
		return Config{}, fmt.Errorf("read public key: %w", err)
	}
	if len(publicPEM) == 0 {
		return Config{}, types.ErrMissingSigningKey
	}
	publicKey, err := signer.ParsePublicKeyPEM(publicPEM)
	if err != nil {
		return Config{}, fmt.Errorf("parse public key: %w", err)
	}

	var privateKey *rsa.PrivateKey
	privatePEM, err := keyMaterial(raw.PrivateKey, raw.PrivateKeyFile)
	if err != nil {
		return Config{}, fmt.Errorf("read private key: %w", err)
	}
	if len(privatePEM) > 0 {
		privateKey, err = signer.ParsePrivateKeyPEM(privatePEM)
		if err != nil {
			return Config{}, fmt.Errorf("parse private key: %w", err)
		}
	}

	if raw.ExpiryDays <= 0 {
		return Config{}, fmt.Errorf("INVITES_EXPIRY_DAYS must be positive")
	}
	if raw.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("INVITES_MAX_VALIDATION_ATTEMPTS must be positive")
	}
	if raw.ClockSkewSeconds < 0 {
		return Config{}, fmt.Errorf("INVITES_CLOCK_SKEW_SECONDS must not be negative")
	}

	return Config{
		PrivateKey:  privateKey,
		PublicKey:   publicKey,
		KeyID:       strings.TrimSpace(raw.KeyID),
		Issuer:      strings.TrimSpace(raw.Issuer),
		Subject:     strings.TrimSpace(raw.Subject),
		Audience:    strings.TrimSpace(raw.Audience),
		ExpiryDays:  raw.ExpiryDays,
		MaxAttempts: raw.MaxAttempts,
		Leeway:      time.Duration(raw.ClockSkewSeconds) * time.Second,
	}, nil
}

// SignerConfig maps the loaded configuration onto the token signer.
func (c Config) SignerConfig(clock types.Clock) signer.Config {
	return signer.Config{
		PrivateKey: c.PrivateKey,
		PublicKey:  c.PublicKey,
		Issuer:     c.Issuer,
		Subject:    c.Subject,
		Audience:   c.Audience,
		KeyID:      c.KeyID,
		Leeway:     c.Leeway,
		Clock:      clock,
	}
}

// keyMaterial resolves inline-vs-file key input. Inline values may be raw
// PEM or base64-wrapped PEM so keys survive env files that reject newlines.
func keyMaterial(inline, file string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	if inline != "" {
		if strings.Contains(inline, "-----BEGIN") {
			return []byte(inline), nil
		}
		decoded, err := base64.StdEncoding.DecodeString(inline)
		if err != nil {
			return nil, fmt.Errorf("decode base64 key: %w", err)
		}
		return decoded, nil
	}
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, nil
	}
	return os.ReadFile(file)
}
