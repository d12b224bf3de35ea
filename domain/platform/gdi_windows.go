//go:build windows

package platform

// GDI capture with per-attempt allocations. Each attempt creates a temporary
// top-down DIB sized to the request, fills it, converts BGRA to a heap-owned
// *image.RGBA and frees every GDI object before returning.

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
)

const (
	srccopy      = 0x00CC0020
	captureblt   = 0x40000000
	dibRGBColors = 0
	biRGB        = 0
	gdiError     = ^uintptr(0)
)

// BITMAPINFO structures (Win32 layout).
type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte // one RGBQUAD placeholder (unused for 32-bit)
}

// screenDC is the desktop device context; release must run on every path.
type screenDC uintptr

func getScreenDC() (screenDC, error) {
	dc, _, err := procGetDC.Call(0)
	if dc == 0 {
		return 0, fmt.Errorf("GetDC: %w", err)
	}
	return screenDC(dc), nil
}

func (dc screenDC) release() { _, _, _ = procReleaseDC.Call(0, uintptr(dc)) }

// surface is a memory DC with a 32-bit DIB section selected into it.
type surface struct {
	dc   uintptr
	bmp  uintptr
	prev uintptr
	bits unsafe.Pointer
	w, h int
}

// newSurface allocates a w x h surface compatible with ref. On error nothing
// is left allocated.
func newSurface(ref screenDC, w, h int) (*surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", w, h)
	}
	s := &surface{w: w, h: h}
	dc, _, err := procCreateCompatibleDC.Call(uintptr(ref))
	if dc == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC: %w", err)
	}
	s.dc = dc

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(w)
	bi.Header.BiHeight = -int32(h) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRGB
	bi.Header.BiSizeImage = uint32(w * h * 4)

	bmp, _, err := procCreateDIBSection.Call(s.dc, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&s.bits)), 0, 0)
	if bmp == 0 || s.bits == nil {
		s.release()
		return nil, fmt.Errorf("CreateDIBSection %dx%d: %w", w, h, err)
	}
	s.bmp = bmp

	prev, _, err := procSelectObject.Call(s.dc, s.bmp)
	if prev == 0 || prev == gdiError {
		s.release()
		return nil, fmt.Errorf("SelectObject: %w", err)
	}
	s.prev = prev
	return s, nil
}

// release deselects and frees the bitmap, then the DC.
func (s *surface) release() {
	if s.prev != 0 {
		_, _, _ = procSelectObject.Call(s.dc, s.prev)
		s.prev = 0
	}
	if s.bmp != 0 {
		_, _, _ = procDeleteObject.Call(s.bmp)
		s.bmp = 0
	}
	if s.dc != 0 {
		_, _, _ = procDeleteDC.Call(s.dc)
		s.dc = 0
	}
	s.bits = nil
}

// rgba copies the DIB out into Go memory.
func (s *surface) rgba() (*image.RGBA, error) {
	_, _, _ = procGdiFlush.Call()
	n := s.w * s.h * 4
	return convertBGRA(unsafe.Slice((*byte)(s.bits), n), s.w, s.h, s.w*4)
}

// printWindowStrategy asks the window to render itself into the surface. It
// works for occluded windows; GPU-composited windows may leave it blank.
type printWindowStrategy struct{}

func (printWindowStrategy) Name() string { return "print_window" }

func (s printWindowStrategy) Attempt(info window.Info, req capture.Request) capture.Outcome {
	return printWindow(s.Name(), info, req, printWindowFlags(req.Area))
}

// printWindowLegacyStrategy repeats PrintWindow without PW_RENDERFULLCONTENT.
// Some older GDI windows reject or blank out the full-content path but still
// paint through WM_PRINT.
type printWindowLegacyStrategy struct{}

func (printWindowLegacyStrategy) Name() string { return "print_window_legacy" }

func (s printWindowLegacyStrategy) Attempt(info window.Info, req capture.Request) capture.Outcome {
	return printWindow(s.Name(), info, req, legacyPrintWindowFlags(req.Area))
}

func printWindow(name string, info window.Info, req capture.Request, flags uintptr) capture.Outcome {
	ref, err := getScreenDC()
	if err != nil {
		return capture.Rejected(err)
	}
	defer ref.release()

	surf, err := newSurface(ref, req.Rect.Width(), req.Rect.Height())
	if err != nil {
		return capture.Rejected(err)
	}
	defer surf.release()

	r, _, callErr := procPrintWindow.Call(uintptr(info.Handle), surf.dc, flags)
	if r == 0 {
		return capture.Rejected(fmt.Errorf("PrintWindow %s flags=%#x: %w", info.Handle, flags, callErr))
	}
	img, err := surf.rgba()
	if err != nil {
		return capture.Rejected(err)
	}
	return capture.Succeeded(name, img)
}

// screenCopyStrategy copies the visible screen pixels under the requested
// rect. Overlapping windows bleed into the result.
type screenCopyStrategy struct{}

func (screenCopyStrategy) Name() string { return "screen_copy" }

func (screenCopyStrategy) ReadsScreen() bool { return true }

func (s screenCopyStrategy) Attempt(info window.Info, req capture.Request) capture.Outcome {
	if !info.OnScreen() {
		return capture.Rejected(errors.New("window is not on screen"))
	}
	ref, err := getScreenDC()
	if err != nil {
		return capture.Rejected(err)
	}
	defer ref.release()

	w, h := req.Rect.Width(), req.Rect.Height()
	surf, err := newSurface(ref, w, h)
	if err != nil {
		return capture.Rejected(err)
	}
	defer surf.release()

	x, y := req.Rect.Left, req.Rect.Top
	ok, _, callErr := procBitBlt.Call(surf.dc, 0, 0, uintptr(w), uintptr(h), uintptr(ref), uintptr(x), uintptr(y), srccopy|captureblt)
	if ok == 0 {
		return capture.Rejected(fmt.Errorf("BitBlt x=%d y=%d w=%d h=%d: %w", x, y, w, h, callErr))
	}
	img, err := surf.rgba()
	if err != nil {
		return capture.Rejected(err)
	}
	return capture.Succeeded(s.Name(), img)
}
