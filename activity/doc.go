// Package activity persists the invitation audit trail. Every lifecycle
// command emits a record here; validation entries carry the source address
// so each attempt stays attributable.
package activity
