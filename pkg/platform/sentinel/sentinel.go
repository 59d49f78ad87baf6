package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrUnavailable: store or collaborator temporarily unreachable
//   - ErrCorrupt: record exists but cannot be decoded
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrCorrupt     = errors.New("corrupt record")
)
