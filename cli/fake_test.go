package cli

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/platform"
	"github.com/soocke/wincap/domain/window"
)

// fakeBackend is an in-memory desktop. Minimized windows report their
// restored geometry in normal until ShowNoActivate is called.
type fakeBackend struct {
	order      []window.Handle
	wins       map[window.Handle]*window.Info
	normal     map[window.Handle][2]window.Rect
	fg         window.Handle
	strategies []capture.Strategy
	closed     bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		wins:       map[window.Handle]*window.Info{},
		normal:     map[window.Handle][2]window.Rect{},
		strategies: []capture.Strategy{paintStrategy{}},
	}
}

func (b *fakeBackend) add(info window.Info) *fakeBackend {
	b.order = append(b.order, info.Handle)
	b.normal[info.Handle] = [2]window.Rect{info.ScreenRect, info.ClientRect}
	if info.IsMinimized {
		info.ScreenRect = window.Rect{Left: -32000, Top: -32000, Right: -31840, Bottom: -31972}
		info.ClientRect = window.Rect{Left: -32000, Top: -32000, Right: -32000, Bottom: -32000}
	}
	b.wins[info.Handle] = &info
	return b
}

func (b *fakeBackend) Name() string                   { return "fake" }
func (b *fakeBackend) Strategies() []capture.Strategy { return b.strategies }
func (b *fakeBackend) Close() error                   { b.closed = true; return nil }
func (b *fakeBackend) Foreground() window.Handle      { return b.fg }

func (b *fakeBackend) TopLevel() ([]window.Handle, error) {
	return append([]window.Handle(nil), b.order...), nil
}

func (b *fakeBackend) Describe(h window.Handle) (window.Info, error) {
	if h == 0 {
		return window.Info{}, window.ErrInvalidHandle
	}
	w, ok := b.wins[h]
	if !ok {
		return window.Info{}, window.ErrWindowGone
	}
	info := *w
	info.IsForeground = h == b.fg
	return info, nil
}

func (b *fakeBackend) ShowNoActivate(h window.Handle) error {
	w, ok := b.wins[h]
	if !ok {
		return window.ErrWindowGone
	}
	w.IsMinimized, w.IsVisible = false, true
	w.ScreenRect, w.ClientRect = b.normal[h][0], b.normal[h][1]
	return nil
}

func (b *fakeBackend) Minimize(h window.Handle) error {
	w, ok := b.wins[h]
	if !ok {
		return window.ErrWindowGone
	}
	w.IsMinimized = true
	return nil
}

func (b *fakeBackend) Hide(h window.Handle) error {
	if w, ok := b.wins[h]; ok {
		w.IsVisible = false
	}
	return nil
}

func (b *fakeBackend) Activate(h window.Handle) error        { b.fg = h; return nil }
func (b *fakeBackend) SetOpacity(window.Handle, uint8) error { return errors.New("unsupported") }
func (b *fakeBackend) ClearOpacity(window.Handle) error      { return nil }

// paintStrategy renders a position gradient sized to the request.
type paintStrategy struct{}

func (paintStrategy) Name() string { return "paint" }

func (paintStrategy) Attempt(_ window.Info, req capture.Request) capture.Outcome {
	w, h := req.Rect.Width(), req.Rect.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	return capture.Succeeded("paint", img)
}

type refusingStrategy struct{}

func (refusingStrategy) Name() string { return "refuse" }

func (refusingStrategy) Attempt(window.Info, capture.Request) capture.Outcome {
	return capture.Rejected(errors.New("access denied"))
}

var (
	notepadScreen = window.Rect{Left: 100, Top: 100, Right: 916, Bottom: 739}
	notepadClient = window.Rect{Left: 108, Top: 151, Right: 908, Bottom: 731}
)

// desktop returns a backend with a minimized Notepad, a terminal with focus
// and a hidden helper window.
func desktop() *fakeBackend {
	b := newFakeBackend().
		add(window.Info{Handle: 0x1A2B, Title: "Untitled - Notepad", PID: 4242, IsVisible: true, IsMinimized: true, ScreenRect: notepadScreen, ClientRect: notepadClient}).
		add(window.Info{Handle: 0x0C0C, Title: "Terminal", PID: 77, IsVisible: true, ScreenRect: window.Rect{Right: 640, Bottom: 480}, ClientRect: window.Rect{Right: 640, Bottom: 480}}).
		add(window.Info{Handle: 0x0D0D, Title: "Notepad Helper", PID: 4242})
	b.fg = 0x0C0C
	return b
}

func discardLogger(slog.Leveler) *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// run executes the command tree against b and returns stdout, stderr and the error.
func run(b *fakeBackend, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCommand(discardLogger, func(*slog.Logger) (platform.Backend, error) { return b, nil }, &out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}
