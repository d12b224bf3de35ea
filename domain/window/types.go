// Package window describes top-level OS windows and the operations used to find
// them and to bring them into a capturable state.
package window

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Handle is an opaque OS identifier for a top-level window (HWND on Windows,
// XID on X11). It is borrowed, never owned, and may go stale at any time.
type Handle uintptr

func (h Handle) String() string { return fmt.Sprintf("0x%X", uintptr(h)) }

// ParseHandle accepts decimal or 0x-prefixed hexadecimal handle values.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty handle", ErrInvalidHandle)
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	return Handle(v), nil
}

// Rect is an edge-based rectangle in pixels. Screen rects are absolute;
// window rects are relative to the window's own origin.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent, never negative.
func (r Rect) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the vertical extent, never negative.
func (r Rect) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Empty reports whether the rect has zero area.
func (r Rect) Empty() bool { return r.Width() == 0 || r.Height() == 0 }

// Image converts to an image.Rectangle with the same coordinates.
func (r Rect) Image() image.Rectangle { return image.Rect(r.Left, r.Top, r.Right, r.Bottom) }

// Relative expresses r in a space whose origin is (x, y), e.g. a screen rect
// relative to a window's top-left corner.
func (r Rect) Relative(x, y int) Rect {
	return Rect{Left: r.Left - x, Top: r.Top - y, Right: r.Right - x, Bottom: r.Bottom - y}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", r.Left, r.Top, r.Right, r.Bottom, r.Width(), r.Height())
}

// Info is a fresh snapshot of a window's metadata. It is never cached: geometry
// can change between calls.
type Info struct {
	Handle       Handle `json:"handle"`
	Title        string `json:"title"`
	PID          uint32 `json:"pid"`
	IsMinimized  bool   `json:"minimized"`
	// IsVisible is the window's own shown/hidden bit (WS_VISIBLE, or not
	// withdrawn on X11). Minimized and cloaked windows are still visible.
	IsVisible bool `json:"visible"`
	// IsCloaked marks a shown window that is not painted to the screen: DWM
	// cloaking, or an X11 client on another workspace.
	IsCloaked    bool `json:"cloaked"`
	IsTool       bool `json:"tool"`
	IsForeground bool `json:"foreground"`
	ScreenRect   Rect `json:"screen_rect"`
	ClientRect   Rect `json:"client_rect"` // screen coordinates
}

// Capturable reports whether the window can be captured without a state change.
// Cloaked windows count as capturable: showing them again is the window
// manager's decision, so only off-screen strategies can reach them.
func (i Info) Capturable() bool { return i.IsVisible && !i.IsMinimized }

// OnScreen reports whether the window's pixels are currently composited to the
// screen, which screen-copy strategies require.
func (i Info) OnScreen() bool { return i.IsVisible && !i.IsMinimized && !i.IsCloaked }

// Inspector enumerates and describes top-level windows. Implementations have no
// side effects.
type Inspector interface {
	// TopLevel returns top-level windows in OS enumeration order.
	TopLevel() ([]Handle, error)
	// Describe fails with ErrInvalidHandle or ErrWindowGone.
	Describe(h Handle) (Info, error)
	// Foreground returns the window that currently owns input focus, or 0.
	Foreground() Handle
}

// Controller adds the state changes needed to make a window capturable.
type Controller interface {
	Inspector
	// ShowNoActivate restores or shows h without giving it focus or changing z-order.
	ShowNoActivate(h Handle) error
	// Minimize iconifies h without activating another window.
	Minimize(h Handle) error
	// Hide removes h from the screen.
	Hide(h Handle) error
	// Activate makes h the foreground window.
	Activate(h Handle) error
	// SetOpacity applies a constant alpha to the whole window.
	SetOpacity(h Handle, alpha uint8) error
	// ClearOpacity removes an alpha applied by SetOpacity.
	ClearOpacity(h Handle) error
}
