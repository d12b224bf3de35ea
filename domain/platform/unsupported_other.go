//go:build !windows && !linux

package platform

import (
	"fmt"
	"log/slog"
	"runtime"
)

func open(*slog.Logger) (Backend, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupported)
}
