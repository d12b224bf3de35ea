package capture

import (
	"image"
	"image/color"
	"sync"

	"github.com/soocke/wincap/domain/window"
)

// fakeWindow pairs the current state with the geometry the window reports
// once restored.
type fakeWindow struct {
	info   window.Info
	screen window.Rect
	client window.Rect
}

// fakeDesktop is an in-memory window.Controller, safe for concurrent use.
type fakeDesktop struct {
	mu      sync.Mutex
	windows map[window.Handle]*fakeWindow
	alpha   map[window.Handle]uint8
	fg      window.Handle
	minErr  error
	calls   []string
}

func newFakeDesktop(ws ...fakeWindow) *fakeDesktop {
	d := &fakeDesktop{windows: map[window.Handle]*fakeWindow{}, alpha: map[window.Handle]uint8{}}
	for i := range ws {
		w := ws[i]
		d.windows[w.info.Handle] = &w
	}
	return d
}

func (d *fakeDesktop) call(name string) {
	d.calls = append(d.calls, name)
}

func (d *fakeDesktop) TopLevel() ([]window.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []window.Handle
	for h := range d.windows {
		out = append(out, h)
	}
	return out, nil
}

func (d *fakeDesktop) Describe(h window.Handle) (window.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == 0 || h > 0xFFFFFFFF {
		return window.Info{}, window.ErrInvalidHandle
	}
	w, ok := d.windows[h]
	if !ok {
		return window.Info{}, window.ErrWindowGone
	}
	return w.info, nil
}

func (d *fakeDesktop) Foreground() window.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fg
}

func (d *fakeDesktop) ShowNoActivate(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("show")
	w, ok := d.windows[h]
	if !ok {
		return window.ErrWindowGone
	}
	w.info.IsMinimized = false
	w.info.IsVisible = true
	w.info.ScreenRect = w.screen
	w.info.ClientRect = w.client
	return nil
}

func (d *fakeDesktop) Minimize(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("minimize")
	if d.minErr != nil {
		return d.minErr
	}
	w, ok := d.windows[h]
	if !ok {
		return window.ErrWindowGone
	}
	w.info.IsMinimized = true
	w.info.ScreenRect = window.Rect{Left: -32000, Top: -32000, Right: -31840, Bottom: -31972}
	w.info.ClientRect = window.Rect{Left: -32000, Top: -32000, Right: -32000, Bottom: -32000}
	return nil
}

func (d *fakeDesktop) Hide(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("hide")
	if w, ok := d.windows[h]; ok {
		w.info.IsVisible = false
	}
	return nil
}

func (d *fakeDesktop) Activate(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("activate")
	d.fg = h
	return nil
}

func (d *fakeDesktop) SetOpacity(h window.Handle, alpha uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("opacity")
	d.alpha[h] = alpha
	return nil
}

func (d *fakeDesktop) ClearOpacity(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("clear-opacity")
	delete(d.alpha, h)
	return nil
}

func (d *fakeDesktop) cloaked(h window.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.alpha[h]
	return ok
}

func (d *fakeDesktop) count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

// visibleWindow builds a normal, on-screen window.
func visibleWindow(h window.Handle, title string, screen, client window.Rect) fakeWindow {
	return fakeWindow{
		info:   window.Info{Handle: h, Title: title, IsVisible: true, ScreenRect: screen, ClientRect: client},
		screen: screen,
		client: client,
	}
}

// minimizedWindow builds a window that reports iconic geometry until restored.
func minimizedWindow(h window.Handle, title string, screen, client window.Rect) fakeWindow {
	return fakeWindow{
		info: window.Info{
			Handle: h, Title: title, IsVisible: true, IsMinimized: true,
			ScreenRect: window.Rect{Left: -32000, Top: -32000, Right: -31840, Bottom: -31972},
			ClientRect: window.Rect{Left: -32000, Top: -32000, Right: -32000, Bottom: -32000},
		},
		screen: screen,
		client: client,
	}
}

// fakeStrategy records requests and delegates to fn.
type fakeStrategy struct {
	name     string
	requests []Request
	fn       func(info window.Info, req Request) Outcome
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Attempt(info window.Info, req Request) Outcome {
	s.requests = append(s.requests, req)
	return s.fn(info, req)
}

func rendering(name string) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(_ window.Info, req Request) Outcome {
		return Succeeded(name, gradient(req.Rect.Width(), req.Rect.Height()))
	}}
}

func blank(name string) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(_ window.Info, req Request) Outcome {
		return Succeeded(name, solid(req.Rect.Width(), req.Rect.Height(), color.RGBA{A: 0xFF}))
	}}
}

func rejecting(name string, err error) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(window.Info, Request) Outcome { return Rejected(err) }}
}

// gradient encodes the pixel position in R and G so crops can be verified.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xFF})
		}
	}
	return img
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// screenCopy reads what the desktop shows at the window's rect: the window
// itself, or the wallpaper behind it while the window is transparent.
type screenCopy struct {
	desk     *fakeDesktop
	cloakedN int
}

func (s *screenCopy) Name() string      { return "screen" }
func (s *screenCopy) ReadsScreen() bool { return true }

func (s *screenCopy) Attempt(info window.Info, req Request) Outcome {
	if s.desk.cloaked(info.Handle) {
		s.cloakedN++
		return Succeeded("screen", wallpaper(req.Rect.Width(), req.Rect.Height()))
	}
	return Succeeded("screen", gradient(req.Rect.Width(), req.Rect.Height()))
}

// paint is a stateless rendering strategy for concurrent tests.
type paint struct{}

func (paint) Name() string { return "paint" }

func (paint) Attempt(_ window.Info, req Request) Outcome {
	return Succeeded("paint", gradient(req.Rect.Width(), req.Rect.Height()))
}

// wallpaper is non-uniform content that does not belong to any window.
func wallpaper(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x + y), G: 0x20, B: 0x99, A: 0xFF})
		}
	}
	return img
}
