package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and upstream clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: the key has no record in the store
//   - ErrConflict: a record already exists for the key
//   - ErrInvalidState: entity is in the wrong state for the requested operation
//   - ErrUnavailable: backing service could not be reached
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
