//go:build windows

package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
)

// Win32 DLL procs (lazy loaded)
var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")
	dwmapi = windows.NewLazySystemDLL("dwmapi.dll")

	procIsIconic                      = user32.NewProc("IsIconic")
	procGetWindowTextW                = user32.NewProc("GetWindowTextW")
	procGetWindowRect                 = user32.NewProc("GetWindowRect")
	procGetClientRect                 = user32.NewProc("GetClientRect")
	procClientToScreen                = user32.NewProc("ClientToScreen")
	procShowWindow                    = user32.NewProc("ShowWindow")
	procSetWindowPos                  = user32.NewProc("SetWindowPos")
	procSetForegroundWindow           = user32.NewProc("SetForegroundWindow")
	procGetWindowLongW                = user32.NewProc("GetWindowLongW")
	procSetWindowLongW                = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttributes    = user32.NewProc("SetLayeredWindowAttributes")
	procPrintWindow                   = user32.NewProc("PrintWindow")
	procGetDC                         = user32.NewProc("GetDC")
	procReleaseDC                     = user32.NewProc("ReleaseDC")
	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procCreateCompatibleDC            = gdi32.NewProc("CreateCompatibleDC")
	procCreateDIBSection              = gdi32.NewProc("CreateDIBSection")
	procSelectObject                  = gdi32.NewProc("SelectObject")
	procBitBlt                        = gdi32.NewProc("BitBlt")
	procDeleteObject                  = gdi32.NewProc("DeleteObject")
	procDeleteDC                      = gdi32.NewProc("DeleteDC")
	procGdiFlush                      = gdi32.NewProc("GdiFlush")
	procDwmGetWindowAttribute         = dwmapi.NewProc("DwmGetWindowAttribute")
)

// Win32 constants
const (
	swHide            = 0
	swShowNoActivate  = 4
	swShowMinNoActive = 7
	swShowNA          = 8

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
	swpShowWindow = 0x0040

	wsExToolWindow = 0x00000080
	wsExLayered    = 0x00080000
	lwaAlpha       = 0x2

	dwmwaCloaked = 14
)

// GWL_EXSTYLE is negative; passing it through a variable lets the uintptr
// conversion sign-extend at run time.
var gwlExStyle int32 = -20

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 is the pseudo handle -4.
var dpiPerMonitorAwareV2 = ^uintptr(3)

type point struct{ X, Y int32 }

// win32 implements Backend with user32/gdi32. It keeps no per-window state.
type win32 struct {
	logger *slog.Logger
}

func open(logger *slog.Logger) (Backend, error) {
	// Physical pixel geometry keeps GetWindowRect in the same space as the
	// surfaces PrintWindow and BitBlt fill.
	if procSetProcessDpiAwarenessContext.Find() == nil {
		if r, _, err := procSetProcessDpiAwarenessContext.Call(dpiPerMonitorAwareV2); r == 0 {
			logger.Debug("dpi awareness unchanged", "error", err)
		}
	}
	return &win32{logger: logger}, nil
}

func (w *win32) Name() string { return "win32" }

func (w *win32) Strategies() []capture.Strategy {
	return []capture.Strategy{printWindowStrategy{}, printWindowLegacyStrategy{}, screenCopyStrategy{}}
}

func (w *win32) Close() error { return nil }

// EnumWindows callbacks are a limited resource, so one is created for the
// process and results are collected under enumMu.
var (
	enumMu      sync.Mutex
	enumResults []window.Handle
	enumProc    = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumResults = append(enumResults, window.Handle(hwnd))
		return 1 // continue
	})
)

func (w *win32) TopLevel() ([]window.Handle, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumResults = nil
	if err := windows.EnumWindows(enumProc, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := enumResults
	enumResults = nil
	return out, nil
}

func (w *win32) Foreground() window.Handle { return window.Handle(windows.GetForegroundWindow()) }

func (w *win32) Describe(h window.Handle) (window.Info, error) {
	hwnd, err := liveWindow(h)
	if err != nil {
		return window.Info{}, err
	}
	info := window.Info{Handle: h, Title: windowText(hwnd)}
	_, _ = windows.GetWindowThreadProcessId(hwnd, &info.PID)
	info.IsVisible = windows.IsWindowVisible(hwnd)
	info.IsCloaked = isCloaked(hwnd)
	info.IsMinimized = isIconic(hwnd)
	info.IsTool = exStyle(hwnd)&wsExToolWindow != 0
	info.IsForeground = windows.GetForegroundWindow() == hwnd

	if info.ScreenRect, err = windowRect(hwnd); err != nil {
		return window.Info{}, vanished(h, err)
	}
	if info.ClientRect, err = clientScreenRect(hwnd); err != nil {
		return window.Info{}, vanished(h, err)
	}
	return info, nil
}

func (w *win32) ShowNoActivate(h window.Handle) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	cmd := uintptr(swShowNA)
	if isIconic(hwnd) {
		cmd = swShowNoActivate
	}
	// ShowWindow reports the previous visibility, not success.
	_, _, _ = procShowWindow.Call(uintptr(hwnd), cmd)
	r, _, callErr := procSetWindowPos.Call(uintptr(hwnd), 0, 0, 0, 0, 0,
		swpShowWindow|swpNoActivate|swpNoZOrder|swpNoMove|swpNoSize)
	if r == 0 {
		return vanished(h, fmt.Errorf("SetWindowPos: %w", callErr))
	}
	if isIconic(hwnd) {
		return fmt.Errorf("%s: still minimized after restore", h)
	}
	return nil
}

func (w *win32) Minimize(h window.Handle) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	_, _, _ = procShowWindow.Call(uintptr(hwnd), swShowMinNoActive)
	if !isIconic(hwnd) {
		return fmt.Errorf("%s: not minimized", h)
	}
	return nil
}

func (w *win32) Hide(h window.Handle) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	_, _, _ = procShowWindow.Call(uintptr(hwnd), swHide)
	if windows.IsWindowVisible(hwnd) {
		return fmt.Errorf("%s: still visible", h)
	}
	return nil
}

func (w *win32) Activate(h window.Handle) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	if r, _, callErr := procSetForegroundWindow.Call(uintptr(hwnd)); r == 0 {
		return fmt.Errorf("SetForegroundWindow %s: %w", h, callErr)
	}
	return nil
}

// SetOpacity layers the window and applies alpha. Windows that are already
// layered keep their own attributes, which could not be restored afterwards.
func (w *win32) SetOpacity(h window.Handle, alpha uint8) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	ex := exStyle(hwnd)
	if ex&wsExLayered != 0 {
		return fmt.Errorf("%s: already layered", h)
	}
	_, _, _ = procSetWindowLongW.Call(uintptr(hwnd), uintptr(gwlExStyle), uintptr(ex|wsExLayered))
	if r, _, callErr := procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, uintptr(alpha), lwaAlpha); r == 0 {
		_, _, _ = procSetWindowLongW.Call(uintptr(hwnd), uintptr(gwlExStyle), uintptr(ex))
		return fmt.Errorf("SetLayeredWindowAttributes %s: %w", h, callErr)
	}
	return nil
}

func (w *win32) ClearOpacity(h window.Handle) error {
	hwnd, err := liveWindow(h)
	if err != nil {
		return err
	}
	ex := exStyle(hwnd)
	_, _, _ = procSetWindowLongW.Call(uintptr(hwnd), uintptr(gwlExStyle), uintptr(ex&^wsExLayered))
	if exStyle(hwnd)&wsExLayered != 0 {
		return fmt.Errorf("%s: layered style not cleared", h)
	}
	return nil
}

func liveWindow(h window.Handle) (windows.HWND, error) {
	if err := checkHandle(h); err != nil {
		return 0, err
	}
	hwnd := windows.HWND(h)
	if !windows.IsWindow(hwnd) {
		return 0, fmt.Errorf("%s: %w", h, window.ErrWindowGone)
	}
	return hwnd, nil
}

// vanished reports err as ErrWindowGone when the window closed mid-call.
func vanished(h window.Handle, err error) error {
	if errors.Is(err, window.ErrWindowGone) {
		return err
	}
	if !windows.IsWindow(windows.HWND(h)) {
		return fmt.Errorf("%s: %w: %w", h, window.ErrWindowGone, err)
	}
	return fmt.Errorf("%s: %w", h, err)
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	r, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	n := int(r)
	if n <= 0 || n > len(buf) {
		return ""
	}
	return strings.TrimSpace(windows.UTF16ToString(buf[:n]))
}

func isIconic(hwnd windows.HWND) bool {
	r, _, _ := procIsIconic.Call(uintptr(hwnd))
	return r != 0
}

func exStyle(hwnd windows.HWND) uint32 {
	r, _, _ := procGetWindowLongW.Call(uintptr(hwnd), uintptr(gwlExStyle))
	return uint32(r)
}

// isCloaked reports DWM cloaking: windows on other virtual desktops and
// suspended UWP frames are "visible" yet never painted.
func isCloaked(hwnd windows.HWND) bool {
	if procDwmGetWindowAttribute.Find() != nil {
		return false
	}
	var v uint32
	r, _, _ := procDwmGetWindowAttribute.Call(uintptr(hwnd), dwmwaCloaked, uintptr(unsafe.Pointer(&v)), unsafe.Sizeof(v))
	return r == 0 && v != 0
}

func windowRect(hwnd windows.HWND) (window.Rect, error) {
	var rc windows.Rect
	if r, _, err := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&rc))); r == 0 {
		return window.Rect{}, fmt.Errorf("GetWindowRect: %w", err)
	}
	return window.Rect{Left: int(rc.Left), Top: int(rc.Top), Right: int(rc.Right), Bottom: int(rc.Bottom)}, nil
}

// clientScreenRect returns the client area in screen coordinates.
func clientScreenRect(hwnd windows.HWND) (window.Rect, error) {
	var rc windows.Rect
	if r, _, err := procGetClientRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&rc))); r == 0 {
		return window.Rect{}, fmt.Errorf("GetClientRect: %w", err)
	}
	var origin point
	if r, _, err := procClientToScreen.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&origin))); r == 0 {
		return window.Rect{}, fmt.Errorf("ClientToScreen: %w", err)
	}
	x, y := int(origin.X), int(origin.Y)
	return window.Rect{Left: x, Top: y, Right: x + int(rc.Right-rc.Left), Bottom: y + int(rc.Bottom-rc.Top)}, nil
}
