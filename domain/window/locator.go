package window

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Match pairs a handle with the title it had when matched.
type Match struct {
	Handle Handle `json:"handle"`
	Title  string `json:"title"`
}

// LocatorOptions controls which windows a Locator considers.
type LocatorOptions struct {
	// IncludeHidden also returns hidden, cloaked and tool windows.
	IncludeHidden bool
	// CaseInsensitive folds case for title comparisons.
	CaseInsensitive bool
}

// Locator resolves titles, process ids and handles to live windows. It holds
// no state between calls.
type Locator struct {
	sys    Inspector
	opts   LocatorOptions
	logger *slog.Logger
}

// NewLocator builds a locator over sys. A nil logger discards output.
func NewLocator(sys Inspector, opts LocatorOptions, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Locator{sys: sys, opts: opts, logger: logger}
}

// Describe returns fresh metadata for h.
func (l *Locator) Describe(h Handle) (Info, error) {
	if h == 0 {
		return Info{}, fmt.Errorf("describe %s: %w", h, ErrInvalidHandle)
	}
	info, err := l.sys.Describe(h)
	if err != nil {
		return Info{}, fmt.Errorf("describe %s: %w", h, err)
	}
	return info, nil
}

// FindByTitle returns the first eligible window whose title equals title.
func (l *Locator) FindByTitle(title string) (Handle, error) {
	var found Handle
	err := l.each(func(info Info) bool {
		if l.equal(info.Title, title) {
			found = info.Handle
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if found == 0 {
		return 0, fmt.Errorf("title %q: %w", title, ErrNotFound)
	}
	return found, nil
}

// FindByTitlePartial returns every eligible window whose title contains sub, in
// OS enumeration order. The order carries no ranking beyond "first found".
// An empty sub matches every titled window.
func (l *Locator) FindByTitlePartial(sub string) ([]Match, error) {
	var out []Match
	err := l.each(func(info Info) bool {
		if info.Title != "" && l.contains(info.Title, sub) {
			out = append(out, Match{Handle: info.Handle, Title: info.Title})
		}
		return true
	})
	return out, err
}

// FindByPID returns the eligible windows owned by process pid.
func (l *Locator) FindByPID(pid uint32) ([]Match, error) {
	var out []Match
	err := l.each(func(info Info) bool {
		if info.PID == pid {
			out = append(out, Match{Handle: info.Handle, Title: info.Title})
		}
		return true
	})
	return out, err
}

// List returns metadata for every eligible window that has a title.
func (l *Locator) List() ([]Info, error) {
	var out []Info
	err := l.each(func(info Info) bool {
		if strings.TrimSpace(info.Title) != "" {
			out = append(out, info)
		}
		return true
	})
	return out, err
}

// each walks eligible windows until fn returns false. Windows that vanish
// mid-enumeration are skipped.
func (l *Locator) each(fn func(Info) bool) error {
	handles, err := l.sys.TopLevel()
	if err != nil {
		return fmt.Errorf("enumerate windows: %w", err)
	}
	for _, h := range handles {
		info, err := l.sys.Describe(h)
		if err != nil {
			if errors.Is(err, ErrWindowGone) || errors.Is(err, ErrInvalidHandle) {
				l.logger.Debug("window vanished during enumeration", "hwnd", h.String())
				continue
			}
			return fmt.Errorf("describe %s: %w", h, err)
		}
		if !l.eligible(info) {
			continue
		}
		if !fn(info) {
			return nil
		}
	}
	return nil
}

func (l *Locator) eligible(info Info) bool {
	if l.opts.IncludeHidden {
		return true
	}
	return info.IsVisible && !info.IsCloaked && !info.IsTool
}

func (l *Locator) equal(a, b string) bool {
	if l.opts.CaseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (l *Locator) contains(s, sub string) bool {
	if l.opts.CaseInsensitive {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	return strings.Contains(s, sub)
}
