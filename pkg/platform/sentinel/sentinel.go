package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Persistence backends return these
// (optionally wrapped) so the session store can decide how to degrade.
//
//   - ErrNotFound: nothing has been persisted under the namespace key yet
//   - ErrCorrupt: persisted bytes exist but cannot be decoded
//   - ErrUnavailable: the backing storage cannot be reached or written
var (
	ErrNotFound    = errors.New("not found")
	ErrCorrupt     = errors.New("corrupt")
	ErrUnavailable = errors.New("unavailable")
)
