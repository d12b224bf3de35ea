// Package platform binds the window and capture abstractions to the host
// window system: Win32 on Windows, X11 on Linux.
package platform

import (
	"errors"
	"io"
	"log/slog"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
)

// ErrUnsupported is returned by Open on hosts without a backend.
var ErrUnsupported = errors.New("window capture is not supported on this platform")

// Backend is a window system plus its capture strategies in priority order.
type Backend interface {
	window.Controller
	// Name identifies the backend in logs.
	Name() string
	// Strategies returns the off-screen strategy first, then the screen copy.
	Strategies() []capture.Strategy
	// Close releases connections held by the backend.
	Close() error
}

// Open connects to the host window system.
func Open(logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b, err := open(logger)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, 2)
	for _, s := range b.Strategies() {
		names = append(names, s.Name())
	}
	logger.Debug("platform.open", "backend", b.Name(), "strategies", names)
	return b, nil
}
