// Package command exposes go-command compatible handlers implementing the
// invitation lifecycle (issue, validate, consume, revoke, reissue, delivery
// tracking, expiry sweeps). Commands are wired by the service layer and can
// be invoked by any transport.
package command
