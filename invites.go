package invites

import "github.com/goliatone/go-invites/service"

// Re-export the service package entry point so consumers can do
// `invites.New(...)` without importing internal wiring helpers.
type (
	Service  = service.Service
	Config   = service.Config
	Commands = service.Commands
	Queries  = service.Queries
)

// New constructs the go-invites runtime using the provided configuration.
func New(cfg Config) (*Service, error) {
	return service.New(cfg)
}

// MapError translates engine sentinels into transport-ready rich errors.
var MapError = service.MapError
