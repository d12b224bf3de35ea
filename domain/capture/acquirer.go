package capture

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/soocke/wincap/domain/window"
)

// Area selects which part of the window a request targets.
type Area int

const (
	AreaWindow Area = iota
	AreaClient
)

func (a Area) String() string {
	if a == AreaClient {
		return "client"
	}
	return "window"
}

// Request is a single acquisition target. Rect is in screen coordinates.
type Request struct {
	Area Area
	Rect window.Rect
	// Reveal, when set, undoes a temporary cloak. It runs once, before the
	// first ScreenReader strategy, because screen copies of a transparent
	// window show whatever is behind it.
	Reveal func() error
}

// Strategy is one way of obtaining pixels for a window. Implementations must
// size their surface to req.Rect, release every OS resource before returning,
// and hand back an image the caller owns.
type Strategy interface {
	Name() string
	Attempt(info window.Info, req Request) Outcome
}

// ScreenReader is implemented by strategies that copy composited screen
// pixels instead of asking the window to render itself.
type ScreenReader interface {
	ReadsScreen() bool
}

func readsScreen(s Strategy) bool {
	r, ok := s.(ScreenReader)
	return ok && r.ReadsScreen()
}

// Acquirer runs strategies in priority order until one yields usable pixels.
type Acquirer struct {
	strategies []Strategy
	logger     *slog.Logger
	now        func() time.Time
}

// NewAcquirer builds an acquirer. Strategies are tried in the given order.
func NewAcquirer(logger *slog.Logger, strategies ...Strategy) *Acquirer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Acquirer{strategies: strategies, logger: logger, now: time.Now}
}

// Strategies returns the configured strategy names in priority order.
func (a *Acquirer) Strategies() []string {
	names := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		names[i] = s.Name()
	}
	return names
}

// Acquire produces an image for req. A zero-area rect short-circuits to
// EmptyRegion without invoking any strategy. Each strategy runs at most once.
func (a *Acquirer) Acquire(info window.Info, req Request) Outcome {
	if req.Rect.Empty() {
		return EmptyRegion()
	}
	log := a.logger.With("hwnd", info.Handle.String(), "area", req.Area.String(), "rect", req.Rect.String())

	var (
		attempts   []Attempt
		degenerate bool
		revealed   bool
		revealErr  error
	)
	for _, s := range a.strategies {
		start := a.now()
		if req.Reveal != nil && readsScreen(s) && !revealed {
			revealed = true
			if revealErr = req.Reveal(); revealErr == nil {
				log.Debug("capture.reveal", "strategy", s.Name())
			}
		}
		var out Outcome
		if revealed && revealErr != nil && readsScreen(s) {
			out = Rejected(fmt.Errorf("window still cloaked: %w", revealErr))
		} else {
			out = s.Attempt(info, req)
		}
		if out.Kind == KindSuccess {
			out = a.check(out, req)
		}
		at := Attempt{Strategy: s.Name(), Kind: out.Kind, Reason: out.reason(), Err: out.cause(), Elapsed: a.now().Sub(start)}
		attempts = append(attempts, at)

		switch out.Kind {
		case KindSuccess:
			log.Debug("capture.strategy", "strategy", s.Name(), "elapsed", at.Elapsed)
			return Outcome{Kind: KindSuccess, Image: out.Image, Strategy: s.Name(), Attempts: attempts}
		case KindEmptyRegion:
			return Outcome{Kind: KindEmptyRegion, Strategy: s.Name(), Attempts: attempts}
		}
		if at.Reason == ReasonDegenerateSurface {
			degenerate = true
		}
		log.Debug("capture.strategy failed", "strategy", s.Name(), "reason", at.Reason.String(), "error", at.Err)
	}

	reason := ReasonOSRejected
	if degenerate {
		reason = ReasonDegenerateSurface
	}
	err := &AcquisitionError{Reason: reason, Attempts: attempts}
	log.Debug("capture.exhausted", "error", err)
	return Outcome{Kind: KindAcquisitionFailed, Err: err, Attempts: attempts}
}

// check validates a strategy's success: the image must match the requested
// size and must not be a uniform surface. The image is normalized to origin 0,0.
func (a *Acquirer) check(out Outcome, req Request) Outcome {
	img := out.Image
	if img == nil {
		return Rejected(fmt.Errorf("%s returned no image", out.Strategy))
	}
	b := img.Bounds()
	if b.Dx() != req.Rect.Width() || b.Dy() != req.Rect.Height() {
		d := Degenerate()
		d.Attempts[0].Err = fmt.Errorf("surface %dx%d, want %dx%d", b.Dx(), b.Dy(), req.Rect.Width(), req.Rect.Height())
		return d
	}
	if Uniform(img) {
		return Degenerate()
	}
	if b.Min != (image.Point{}) {
		out.Image = Crop(img, b)
	}
	return out
}

// Uniform reports whether img is empty or every pixel shares one RGB value.
// Off-screen rendering that a window ignores yields such a surface.
func Uniform(img *image.RGBA) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	first := img.PixOffset(b.Min.X, b.Min.Y)
	r, g, bl := img.Pix[first], img.Pix[first+1], img.Pix[first+2]
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start, end := img.PixOffset(b.Min.X, y), img.PixOffset(b.Max.X-1, y)+4
		row := img.Pix[start:end]
		for i := 0; i < len(row); i += 4 {
			if row[i] != r || row[i+1] != g || row[i+2] != bl {
				return false
			}
		}
	}
	return true
}
