package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator adapters
// return these (optionally wrapped) so the engine can translate them into
// scan verdicts instead of leaking storage details.
//
// These represent factual states about resources, not rule failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a concurrent writer got there first
// - ErrUnavailable: collaborator or resource temporarily unreachable
// - ErrPermissionDenied: the device refused to produce the resource
//
// Rule failures (expired token, outside the fence) are verdicts, never errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("unavailable")
	ErrPermissionDenied = errors.New("permission denied")
)
