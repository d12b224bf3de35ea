package window

import "errors"

var (
	// ErrInvalidHandle means the handle is malformed or never referred to a window.
	ErrInvalidHandle = errors.New("invalid window handle")
	// ErrWindowGone means the handle was valid but the window has been destroyed.
	ErrWindowGone = errors.New("window gone")
	// ErrNotFound means no window matched a lookup.
	ErrNotFound = errors.New("window not found")
)
