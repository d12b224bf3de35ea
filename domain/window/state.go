package window

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// cloakAlpha keeps a temporarily restored window practically invisible while
// still letting it paint.
const cloakAlpha = 1

// PriorState records what EnsureCapturable changed so Revert can undo it.
// The zero value is Unchanged.
type PriorState struct {
	Changed      bool
	WasMinimized bool
	WasHidden    bool
	Cloaked      bool
	Foreground   Handle
}

// Unchanged is returned when the window was already capturable.
var Unchanged = PriorState{}

// StateOptions tunes the state controller.
type StateOptions struct {
	// SettleDelay is waited after restoring so the window can repaint.
	SettleDelay time.Duration
	// Cloak makes a minimized window nearly transparent while it is restored.
	Cloak bool
	// RestoreForeground re-activates the prior foreground window on revert if
	// focus moved during the capture.
	RestoreForeground bool
}

// StateController normalizes a window into a capturable state and reverts it.
type StateController struct {
	sys    Controller
	opts   StateOptions
	logger *slog.Logger
	sleep  func(time.Duration)
}

// NewStateController builds a controller over sys. A nil logger discards output.
func NewStateController(sys Controller, opts StateOptions, logger *slog.Logger) *StateController {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StateController{sys: sys, opts: opts, logger: logger, sleep: time.Sleep}
}

// EnsureCapturable restores a minimized or hidden window without transferring
// input focus to it. It returns Unchanged when nothing had to be done. A closed
// or invalid handle fails with ErrWindowGone.
//
// Only the window's own hidden bit counts as hidden: a cloaked window is left
// alone, so Revert never hides a window the user did not hide. When the restore
// fails part way the returned PriorState is still valid for Revert.
func (c *StateController) EnsureCapturable(h Handle) (PriorState, error) {
	info, err := c.sys.Describe(h)
	if err != nil {
		return Unchanged, gone(h, err)
	}
	if info.Capturable() {
		return Unchanged, nil
	}

	prior := PriorState{
		Changed:      true,
		WasMinimized: info.IsMinimized,
		WasHidden:    !info.IsVisible,
		Foreground:   c.sys.Foreground(),
	}
	log := c.logger.With("hwnd", h.String(), "minimized", prior.WasMinimized, "hidden", prior.WasHidden)

	if prior.WasMinimized && c.opts.Cloak {
		if err := c.sys.SetOpacity(h, cloakAlpha); err != nil {
			log.Debug("cloak skipped", "error", err)
		} else {
			prior.Cloaked = true
		}
	}

	if err := c.sys.ShowNoActivate(h); err != nil {
		if prior.Cloaked && c.sys.ClearOpacity(h) == nil {
			prior.Cloaked = false
		}
		if errors.Is(err, ErrWindowGone) || errors.Is(err, ErrInvalidHandle) {
			return Unchanged, gone(h, err)
		}
		return prior, fmt.Errorf("restore %s: %w", h, err)
	}
	log.Debug("window restored without activation")

	if c.opts.SettleDelay > 0 {
		c.sleep(c.opts.SettleDelay)
	}
	return prior, nil
}

// Uncloak removes the cloak applied by EnsureCapturable so the window is
// composited normally again. prior is updated so Revert does not clear it twice.
func (c *StateController) Uncloak(h Handle, prior *PriorState) error {
	if !prior.Cloaked {
		return nil
	}
	if err := c.sys.ClearOpacity(h); err != nil {
		return fmt.Errorf("clear opacity %s: %w", h, err)
	}
	prior.Cloaked = false
	return nil
}

// Revert puts the window back into its prior state. It is best effort: the
// returned error is a non-fatal report, the capture has already completed.
func (c *StateController) Revert(h Handle, prior PriorState) error {
	if !prior.Changed {
		return nil
	}
	var errs []error
	switch {
	case prior.WasMinimized:
		if err := c.sys.Minimize(h); err != nil {
			errs = append(errs, fmt.Errorf("re-minimize %s: %w", h, err))
		}
	case prior.WasHidden:
		if err := c.sys.Hide(h); err != nil {
			errs = append(errs, fmt.Errorf("re-hide %s: %w", h, err))
		}
	}
	if prior.Cloaked {
		if err := c.sys.ClearOpacity(h); err != nil {
			errs = append(errs, fmt.Errorf("clear opacity %s: %w", h, err))
		}
	}
	if c.opts.RestoreForeground && prior.Foreground != 0 && prior.Foreground != h {
		if fg := c.sys.Foreground(); fg != prior.Foreground {
			if err := c.sys.Activate(prior.Foreground); err != nil {
				errs = append(errs, fmt.Errorf("restore foreground %s: %w", prior.Foreground, err))
			}
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warn("state revert incomplete", "hwnd", h.String(), "error", err)
	}
	return err
}

// gone maps any describe failure onto ErrWindowGone while keeping the cause.
func gone(h Handle, err error) error {
	if errors.Is(err, ErrWindowGone) {
		return fmt.Errorf("window %s: %w", h, err)
	}
	return fmt.Errorf("window %s: %w: %w", h, ErrWindowGone, err)
}
