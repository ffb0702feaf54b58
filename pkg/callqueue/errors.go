package callqueue

import "github.com/pkg/errors"

// Typed store outcomes. These map 1:1 onto the error frames surfaced at
// the websocket edge; callers match with errors.Is.
var (
	ErrShopperNotFound = errors.New("shopper not found")
	ErrAlreadyClaimed  = errors.New("shopper is already claimed by another representative")
	ErrRepBusy         = errors.New("representative already has an active call")
	ErrNotAssigned     = errors.New("shopper is not assigned to this representative")
	ErrCollabPending   = errors.New("a collaboration request is already pending")
	ErrNoPendingCollab = errors.New("no pending collaboration request")
)
