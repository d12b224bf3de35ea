//go:build linux

package platform

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/vova616/screenshot"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
)

const opacityProp = "_NET_WM_WINDOW_OPACITY"

// toolTypes are EWMH window types that never count as application windows.
var toolTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_DESKTOP":      true,
	"_NET_WM_WINDOW_TYPE_DOCK":         true,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":      true,
	"_NET_WM_WINDOW_TYPE_MENU":         true,
	"_NET_WM_WINDOW_TYPE_UTILITY":      true,
	"_NET_WM_WINDOW_TYPE_SPLASH":       true,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION": true,
}

// x11 implements Backend over an X server. Window managers reparent clients
// into frame windows; handles are client windows, screen rects are frames.
type x11 struct {
	xu        *xgbutil.XUtil
	root      xproto.Window
	composite bool
	logger    *slog.Logger
}

func open(logger *slog.Logger) (Backend, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w: %w", ErrUnsupported, err)
	}
	x := &x11{xu: xu, root: xu.RootWin(), logger: logger}
	if err := composite.Init(xu.Conn()); err != nil {
		logger.Warn("composite extension not available, occluded windows cannot be captured", "error", err)
	} else {
		x.composite = true
	}
	return x, nil
}

func (x *x11) Name() string { return "x11" }

func (x *x11) Strategies() []capture.Strategy {
	if x.composite {
		return []capture.Strategy{compositeStrategy{x: x}, rootCopyStrategy{}}
	}
	return []capture.Strategy{rootCopyStrategy{}}
}

func (x *x11) Close() error {
	x.xu.Conn().Close()
	return nil
}

func (x *x11) TopLevel() ([]window.Handle, error) {
	clients, err := ewmh.ClientListGet(x.xu)
	if err != nil {
		// No EWMH window manager: fall back to the root's children.
		tree, terr := xproto.QueryTree(x.xu.Conn(), x.root).Reply()
		if terr != nil {
			return nil, fmt.Errorf("list clients: %w", errors.Join(err, terr))
		}
		clients = tree.Children
	}
	out := make([]window.Handle, len(clients))
	for i, c := range clients {
		out[i] = window.Handle(c)
	}
	return out, nil
}

func (x *x11) Foreground() window.Handle {
	active, err := ewmh.ActiveWindowGet(x.xu)
	if err != nil {
		return 0
	}
	return window.Handle(active)
}

func (x *x11) Describe(h window.Handle) (window.Info, error) {
	win, attrs, err := x.live(h)
	if err != nil {
		return window.Info{}, err
	}
	info := window.Info{Handle: h, Title: x.title(win)}
	if pid, err := ewmh.WmPidGet(x.xu, win); err == nil {
		info.PID = uint32(pid)
	}
	// Iconified and off-workspace clients are unmapped but still managed.
	// The WM_STATE of a managed client says whether it wants to be shown.
	viewable := attrs.MapState == xproto.MapStateViewable
	info.IsMinimized = x.iconic(win)
	info.IsVisible = viewable || info.IsMinimized || x.normal(win)
	info.IsCloaked = info.IsVisible && !viewable && !info.IsMinimized
	info.IsTool = x.tool(win)
	info.IsForeground = x.Foreground() == h

	if info.ClientRect, err = x.rootRect(win); err != nil {
		return window.Info{}, vanished(h, err)
	}
	frame, err := x.frame(win)
	if err != nil {
		return window.Info{}, vanished(h, err)
	}
	if info.ScreenRect, err = x.rootRect(frame); err != nil {
		return window.Info{}, vanished(h, err)
	}
	return info, nil
}

// ShowNoActivate maps the window with a zero user time, which EWMH window
// managers take as "do not focus on map".
func (x *x11) ShowNoActivate(h window.Handle) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	if err := ewmh.WmUserTimeSet(x.xu, win, 0); err != nil {
		x.logger.Debug("user time not set", "hwnd", h.String(), "error", err)
	}
	if err := ewmh.WmStateReq(x.xu, win, ewmh.StateRemove, "_NET_WM_STATE_HIDDEN"); err != nil {
		x.logger.Debug("hidden state not cleared", "hwnd", h.String(), "error", err)
	}
	if err := xproto.MapWindowChecked(x.xu.Conn(), win).Check(); err != nil {
		return vanished(h, fmt.Errorf("map window: %w", err))
	}
	x.xu.Sync()
	return nil
}

// Minimize asks the window manager to iconify through WM_CHANGE_STATE.
func (x *x11) Minimize(h window.Handle) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	if err := ewmh.ClientEvent(x.xu, win, "WM_CHANGE_STATE", icccm.StateIconic); err != nil {
		return fmt.Errorf("iconify %s: %w", h, err)
	}
	x.xu.Sync()
	return nil
}

func (x *x11) Hide(h window.Handle) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	if err := xproto.UnmapWindowChecked(x.xu.Conn(), win).Check(); err != nil {
		return fmt.Errorf("unmap %s: %w", h, err)
	}
	return nil
}

func (x *x11) Activate(h window.Handle) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	return ewmh.ActiveWindowReq(x.xu, win)
}

// SetOpacity sets the compositor opacity hint on the frame. A window that
// already carries the hint is left alone.
func (x *x11) SetOpacity(h window.Handle, alpha uint8) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	frame, err := x.frame(win)
	if err != nil {
		return err
	}
	if _, err := xprop.PropValNum(xprop.GetProperty(x.xu, frame, opacityProp)); err == nil {
		return fmt.Errorf("%s: opacity already set", h)
	}
	return xprop.ChangeProp32(x.xu, frame, opacityProp, "CARDINAL", uint(alpha)*0x01010101)
}

func (x *x11) ClearOpacity(h window.Handle) error {
	win, _, err := x.live(h)
	if err != nil {
		return err
	}
	frame, err := x.frame(win)
	if err != nil {
		return err
	}
	atom, err := xprop.Atm(x.xu, opacityProp)
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(x.xu.Conn(), frame, atom).Check()
}

// live validates h and fetches its attributes; a BadWindow reply means the
// window is gone.
func (x *x11) live(h window.Handle) (xproto.Window, *xproto.GetWindowAttributesReply, error) {
	if err := checkHandle(h); err != nil {
		return 0, nil, err
	}
	win := xproto.Window(h)
	attrs, err := xproto.GetWindowAttributes(x.xu.Conn(), win).Reply()
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %w", h, window.ErrWindowGone, err)
	}
	return win, attrs, nil
}

func (x *x11) title(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(x.xu, win); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(x.xu, win)
	return name
}

func (x *x11) iconic(win xproto.Window) bool {
	if st, err := icccm.WmStateGet(x.xu, win); err == nil && st.State == icccm.StateIconic {
		return true
	}
	states, _ := ewmh.WmStateGet(x.xu, win)
	for _, s := range states {
		if s == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

// normal reports a managed client in NormalState. Window managers keep that
// state on clients they unmap while switching workspaces.
func (x *x11) normal(win xproto.Window) bool {
	st, err := icccm.WmStateGet(x.xu, win)
	return err == nil && st.State == icccm.StateNormal
}

func (x *x11) tool(win xproto.Window) bool {
	types, _ := ewmh.WmWindowTypeGet(x.xu, win)
	for _, t := range types {
		if toolTypes[t] {
			return true
		}
	}
	states, _ := ewmh.WmStateGet(x.xu, win)
	for _, s := range states {
		if s == "_NET_WM_STATE_SKIP_TASKBAR" {
			return true
		}
	}
	return false
}

// frame walks up the tree to the child of the root that contains win.
func (x *x11) frame(win xproto.Window) (xproto.Window, error) {
	for {
		tree, err := xproto.QueryTree(x.xu.Conn(), win).Reply()
		if err != nil {
			return 0, fmt.Errorf("query tree: %w", err)
		}
		if tree.Parent == x.root || tree.Parent == 0 {
			return win, nil
		}
		win = tree.Parent
	}
}

// rootRect returns win's outer rectangle in root coordinates.
func (x *x11) rootRect(win xproto.Window) (window.Rect, error) {
	conn := x.xu.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return window.Rect{}, fmt.Errorf("get geometry: %w", err)
	}
	pos, err := xproto.TranslateCoordinates(conn, win, x.root, 0, 0).Reply()
	if err != nil {
		return window.Rect{}, fmt.Errorf("translate coordinates: %w", err)
	}
	left, top := int(pos.DstX), int(pos.DstY)
	return window.Rect{Left: left, Top: top, Right: left + int(geom.Width), Bottom: top + int(geom.Height)}, nil
}

func vanished(h window.Handle, err error) error {
	if errors.Is(err, window.ErrWindowGone) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", h, window.ErrWindowGone, err)
}

// compositeStrategy reads the frame's backing pixmap through the Composite
// extension, so occluded windows are captured without the windows above them.
type compositeStrategy struct{ x *x11 }

func (compositeStrategy) Name() string { return "composite" }

func (s compositeStrategy) Attempt(info window.Info, req capture.Request) capture.Outcome {
	conn := s.x.xu.Conn()
	frame, err := s.x.frame(xproto.Window(info.Handle))
	if err != nil {
		return capture.Rejected(err)
	}
	origin, err := s.x.rootRect(frame)
	if err != nil {
		return capture.Rejected(err)
	}

	if err := composite.RedirectWindowChecked(conn, frame, composite.RedirectAutomatic).Check(); err != nil {
		return capture.Rejected(fmt.Errorf("redirect window: %w", err))
	}
	defer composite.UnredirectWindow(conn, frame, composite.RedirectAutomatic)

	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return capture.Rejected(fmt.Errorf("allocate pixmap id: %w", err))
	}
	// Unmapped windows have no backing pixmap; the server answers BadMatch.
	if err := composite.NameWindowPixmapChecked(conn, frame, pixmap).Check(); err != nil {
		return capture.Rejected(fmt.Errorf("name window pixmap: %w", err))
	}
	defer xproto.FreePixmap(conn, pixmap)

	w, h := req.Rect.Width(), req.Rect.Height()
	src := req.Rect.Relative(origin.Left, origin.Top)
	reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(pixmap),
		int16(src.Left), int16(src.Top), uint16(w), uint16(h), 0xffffffff).Reply()
	if err != nil {
		return capture.Rejected(fmt.Errorf("get image: %w", err))
	}
	if reply.Depth != 24 && reply.Depth != 32 {
		return capture.Rejected(fmt.Errorf("unsupported depth %d", reply.Depth))
	}
	img, err := convertBGRA(reply.Data, w, h, len(reply.Data)/h)
	if err != nil {
		return capture.Rejected(err)
	}
	return capture.Succeeded(s.Name(), img)
}

// rootCopyStrategy copies what is currently on screen under the rect.
type rootCopyStrategy struct{}

func (rootCopyStrategy) Name() string { return "screen_copy" }

func (rootCopyStrategy) ReadsScreen() bool { return true }

func (s rootCopyStrategy) Attempt(info window.Info, req capture.Request) capture.Outcome {
	if !info.OnScreen() {
		return capture.Rejected(errors.New("window is not on screen"))
	}
	r := req.Rect
	img, err := screenshot.CaptureRect(image.Rect(r.Left, r.Top, r.Right, r.Bottom))
	if err != nil {
		return capture.Rejected(fmt.Errorf("capture rect %s: %w", r, err))
	}
	return capture.Succeeded(s.Name(), img)
}
