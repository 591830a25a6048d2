package pick

import "fmt"

// Rejection codes returned to callers. A rejection is client-correctable:
// the caller re-fetches room state and retries with fresh arguments. The
// engine never retries a rejection on its own.
const (
	CodeRoomNotActive = "ROOM_NOT_ACTIVE"
	CodeStalePick     = "STALE_PICK"
	CodeNotYourTurn   = "NOT_YOUR_TURN"
	CodePlayerTaken   = "PLAYER_ALREADY_TAKEN"
)

// RejectionError is a typed precondition failure from the commit protocol.
type RejectionError struct {
	Code   string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Sentinel rejections. Compare with errors.Is, or use AsRejection to pull the
// code out for transport mapping.
var (
	ErrRoomNotActive = &RejectionError{Code: CodeRoomNotActive}
	ErrStalePick     = &RejectionError{Code: CodeStalePick}
	ErrNotYourTurn   = &RejectionError{Code: CodeNotYourTurn}
	ErrPlayerTaken   = &RejectionError{Code: CodePlayerTaken}
)

// Is matches rejections by code so wrapped sentinels compare as expected.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// AsRejection unwraps a RejectionError if err is one. Anything else is
// treated as transient by callers and safe to retry verbatim.
func AsRejection(err error) (*RejectionError, bool) {
	for err != nil {
		if r, ok := err.(*RejectionError); ok {
			return r, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
