package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/wincap/config"
	"github.com/soocke/wincap/domain/window"
)

// WindowCapture composes state normalization, pixel acquisition and client
// cropping into the two public capture operations. It holds no mutable state
// besides instrumentation counters, so calls may run in parallel.
type WindowCapture struct {
	sys      window.Controller
	state    *window.StateController
	acquirer *Acquirer
	restore  bool
	logger   *slog.Logger
	now      func() time.Time

	captures      atomic.Uint64
	succeeded     atomic.Uint64
	empty         atomic.Uint64
	failed        atomic.Uint64
	cropFallbacks atomic.Uint64
	captureNanos  atomic.Uint64
	lastCapture   atomic.Int64
}

// NewWindowCapture builds the façade over sys. A nil cfg uses defaults.
func NewWindowCapture(sys window.Controller, strategies []Strategy, cfg *config.Config, logger *slog.Logger) *WindowCapture {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var local config.Config
	if cfg == nil {
		local = *config.DefaultConfig()
	} else {
		local = *cfg
	}
	if err := local.Validate(); err != nil {
		logger.Warn("invalid capture config", "error", err)
	}
	state := window.NewStateController(sys, window.StateOptions{
		SettleDelay:       local.SettleDelay(),
		Cloak:             local.CloakWhileRestored,
		RestoreForeground: local.RestoreForeground,
	}, logger)
	return &WindowCapture{
		sys:      sys,
		state:    state,
		acquirer: NewAcquirer(logger, strategies...),
		restore:  local.RestoreOriginalState,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture runs the operation selected by mode.
func (c *WindowCapture) Capture(h window.Handle, mode config.CaptureMode) (Outcome, error) {
	if mode == config.ModeFull {
		return c.CaptureWindow(h)
	}
	return c.CaptureClient(h)
}

// CaptureWindow captures the whole window including its frame. The returned
// error is only ever ErrInvalidHandle or ErrWindowGone; every other result is
// reported through the Outcome.
func (c *WindowCapture) CaptureWindow(h window.Handle) (Outcome, error) {
	return c.run(h, AreaWindow, func(info window.Info, reveal func() error) Outcome {
		return c.acquirer.Acquire(info, Request{Area: AreaWindow, Rect: info.ScreenRect, Reveal: reveal})
	})
}

// CaptureClient captures only the client area. It first asks for the client
// area directly and falls back to a full-window capture cropped to the client
// rect when the direct path fails.
func (c *WindowCapture) CaptureClient(h window.Handle) (Outcome, error) {
	return c.run(h, AreaClient, c.client)
}

func (c *WindowCapture) client(info window.Info, reveal func() error) Outcome {
	if info.ClientRect.Empty() {
		return EmptyRegion()
	}
	direct := c.acquirer.Acquire(info, Request{Area: AreaClient, Rect: info.ClientRect, Reveal: reveal})
	if direct.Kind != KindAcquisitionFailed {
		return direct
	}

	c.cropFallbacks.Add(1)
	c.logger.Debug("capture.crop fallback", "hwnd", info.Handle.String(), "error", direct.Err)
	full := c.acquirer.Acquire(info, Request{Area: AreaWindow, Rect: info.ScreenRect, Reveal: reveal})
	attempts := append(append([]Attempt(nil), direct.Attempts...), full.Attempts...)

	switch full.Kind {
	case KindEmptyRegion:
		return Outcome{Kind: KindEmptyRegion, Attempts: attempts, Cropped: true}
	case KindAcquisitionFailed:
		reason := full.Err.Reason
		if direct.Err.Reason == ReasonDegenerateSurface {
			reason = ReasonDegenerateSurface
		}
		return Outcome{Kind: KindAcquisitionFailed, Err: &AcquisitionError{Reason: reason, Attempts: attempts}, Attempts: attempts}
	}

	img, crop, ok := CropClient(full.Image, info.ScreenRect, info.ClientRect)
	if !ok {
		c.logger.Debug("capture.crop empty", "hwnd", info.Handle.String(), "crop", crop.String())
		return Outcome{Kind: KindEmptyRegion, Strategy: full.Strategy, Cropped: true, Attempts: attempts}
	}
	return Outcome{Kind: KindSuccess, Image: img, Strategy: full.Strategy, Cropped: true, Attempts: attempts}
}

// run wraps an acquisition with handle validation, state normalization and
// the optional revert.
func (c *WindowCapture) run(h window.Handle, area Area, acquire func(window.Info, func() error) Outcome) (Outcome, error) {
	if h == 0 {
		return Outcome{}, fmt.Errorf("capture %s: %w", h, window.ErrInvalidHandle)
	}
	start := c.now()
	c.captures.Add(1)
	if _, err := c.describe(h); err != nil {
		c.failed.Add(1)
		return Outcome{}, err
	}

	log := c.logger.With("hwnd", h.String(), "area", area.String())

	var warnings []string
	prior, err := c.state.EnsureCapturable(h)
	if err != nil {
		if errors.Is(err, window.ErrWindowGone) {
			c.failed.Add(1)
			return Outcome{}, err
		}
		log.Warn("state restore failed", "error", err)
		warnings = append(warnings, err.Error())
	}

	var reveal func() error
	if prior.Cloaked {
		reveal = func() error { return c.state.Uncloak(h, &prior) }
	}
	var out Outcome
	info, err := c.describe(h)
	if err == nil {
		out = acquire(info, reveal)
	}
	if c.restore {
		if rerr := c.state.Revert(h, prior); rerr != nil {
			warnings = append(warnings, rerr.Error())
		}
	}
	if err != nil {
		c.failed.Add(1)
		return Outcome{}, err
	}

	out.Warnings = append(out.Warnings, warnings...)
	c.record(out, c.now().Sub(start))
	log.Debug("capture.done", "outcome", out.String(), "cropped", out.Cropped, "warnings", len(out.Warnings))
	return out, nil
}

// describe maps backend failures onto the public error taxonomy.
func (c *WindowCapture) describe(h window.Handle) (window.Info, error) {
	info, err := c.sys.Describe(h)
	if err == nil {
		return info, nil
	}
	if errors.Is(err, window.ErrInvalidHandle) || errors.Is(err, window.ErrWindowGone) {
		return window.Info{}, fmt.Errorf("capture %s: %w", h, err)
	}
	return window.Info{}, fmt.Errorf("capture %s: %w: %w", h, window.ErrWindowGone, err)
}

func (c *WindowCapture) record(out Outcome, elapsed time.Duration) {
	switch out.Kind {
	case KindSuccess:
		c.succeeded.Add(1)
	case KindEmptyRegion:
		c.empty.Add(1)
	default:
		c.failed.Add(1)
	}
	if elapsed > 0 {
		c.captureNanos.Add(uint64(elapsed))
	}
	c.lastCapture.Store(c.now().UnixNano())
}

// Stats summarises capture behaviour for instrumentation.
type Stats struct {
	Captures      uint64
	Succeeded     uint64
	Empty         uint64
	Failed        uint64
	CropFallbacks uint64
	AvgCapture    time.Duration
	LastCapture   time.Time
	Strategies    []string
}

// Stats returns a snapshot of the instrumentation counters.
func (c *WindowCapture) Stats() Stats {
	captures := c.captures.Load()
	total := c.captureNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	var last time.Time
	if ns := c.lastCapture.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Captures:      captures,
		Succeeded:     c.succeeded.Load(),
		Empty:         c.empty.Load(),
		Failed:        c.failed.Load(),
		CropFallbacks: c.cropFallbacks.Load(),
		AvgCapture:    avg,
		LastCapture:   last,
		Strategies:    c.acquirer.Strategies(),
	}
}
