package window

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestController(sys *fakeSystem, opts StateOptions) (*StateController, *[]time.Duration) {
	c := NewStateController(sys, opts, nil)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestStateController_AlreadyCapturableIsNoop(t *testing.T) {
	sys := sampleSystem()
	c, slept := newTestController(sys, StateOptions{SettleDelay: 100 * time.Millisecond})
	prior, err := c.EnsureCapturable(0x10)
	if err != nil {
		t.Fatal(err)
	}
	if prior != Unchanged {
		t.Fatalf("expected Unchanged, got %+v", prior)
	}
	if len(sys.calls) != 0 || len(*slept) != 0 {
		t.Fatalf("no-op should not touch the window: calls=%v slept=%v", sys.calls, *slept)
	}
	if err := c.Revert(0x10, prior); err != nil {
		t.Fatalf("reverting Unchanged should succeed: %v", err)
	}
	if len(sys.calls) != 0 {
		t.Fatalf("revert of Unchanged made calls: %v", sys.calls)
	}
}

func TestStateController_MinimizedRoundTrip(t *testing.T) {
	sys := sampleSystem()
	sys.foreground = 0x50
	c, slept := newTestController(sys, StateOptions{SettleDelay: 100 * time.Millisecond, RestoreForeground: true})

	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	if !prior.Changed || !prior.WasMinimized || prior.Foreground != 0x50 {
		t.Fatalf("unexpected prior state %+v", prior)
	}
	if sys.windows[0x20].IsMinimized {
		t.Fatal("window should be restored")
	}
	if sys.foreground != 0x50 {
		t.Fatal("restore must not steal focus")
	}
	if len(*slept) != 1 || (*slept)[0] != 100*time.Millisecond {
		t.Fatalf("expected one settle delay, got %v", *slept)
	}

	if err := c.Revert(0x20, prior); err != nil {
		t.Fatal(err)
	}
	if !sys.windows[0x20].IsMinimized {
		t.Fatal("window should be minimized again")
	}
	if sys.foreground != 0x50 {
		t.Fatal("foreground changed across the round trip")
	}
	if want := []string{"show", "minimize"}; !reflect.DeepEqual(sys.calls, want) {
		t.Fatalf("calls = %v, want %v", sys.calls, want)
	}
}

func TestStateController_HiddenWindowIsHiddenAgain(t *testing.T) {
	sys := sampleSystem()
	c, _ := newTestController(sys, StateOptions{})
	prior, err := c.EnsureCapturable(0x30)
	if err != nil {
		t.Fatal(err)
	}
	if !prior.WasHidden || prior.WasMinimized {
		t.Fatalf("prior = %+v", prior)
	}
	if err := c.Revert(0x30, prior); err != nil {
		t.Fatal(err)
	}
	if sys.windows[0x30].IsVisible {
		t.Fatal("window should be hidden again")
	}
}

func TestStateController_CloakAppliedAndCleared(t *testing.T) {
	sys := sampleSystem()
	c, _ := newTestController(sys, StateOptions{Cloak: true})
	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	if !prior.Cloaked || sys.alpha[0x20] != cloakAlpha {
		t.Fatalf("expected cloak, prior=%+v alpha=%v", prior, sys.alpha)
	}
	if err := c.Revert(0x20, prior); err != nil {
		t.Fatal(err)
	}
	if _, ok := sys.alpha[0x20]; ok {
		t.Fatal("opacity should be cleared")
	}
}

func TestStateController_CloakFailureIsIgnored(t *testing.T) {
	sys := sampleSystem()
	sys.opacityErr = errors.New("already layered")
	c, _ := newTestController(sys, StateOptions{Cloak: true})
	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	if prior.Cloaked {
		t.Fatal("cloak should be recorded as not applied")
	}
}

func TestStateController_GoneWindow(t *testing.T) {
	sys := sampleSystem()
	c, _ := newTestController(sys, StateOptions{})
	if _, err := c.EnsureCapturable(0xDEAD); !errors.Is(err, ErrWindowGone) {
		t.Fatalf("want ErrWindowGone, got %v", err)
	}
	_, err := c.EnsureCapturable(0)
	if !errors.Is(err, ErrWindowGone) || !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("invalid handle should report WindowGone and keep the cause, got %v", err)
	}
}

func TestStateController_RestoreFailure(t *testing.T) {
	sys := sampleSystem()
	sys.showErr = errors.New("access denied")
	c, _ := newTestController(sys, StateOptions{Cloak: true})
	prior, err := c.EnsureCapturable(0x20)
	if err == nil {
		t.Fatal("expected restore error")
	}
	if errors.Is(err, ErrWindowGone) {
		t.Fatalf("plain OS failure should not be WindowGone: %v", err)
	}
	if !prior.Changed || !prior.WasMinimized || prior.Cloaked {
		t.Fatalf("failed restore should still record the minimized state, got %+v", prior)
	}
	if _, ok := sys.alpha[0x20]; ok {
		t.Fatal("cloak should be undone after failed restore")
	}

	// The OS may have restored the window before reporting the failure.
	sys.windows[0x20].IsMinimized = false
	sys.calls = nil
	if err := c.Revert(0x20, prior); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !sys.windows[0x20].IsMinimized {
		t.Fatalf("partially restored window not minimized again, calls=%v", sys.calls)
	}
	if want := []string{"minimize"}; !reflect.DeepEqual(sys.calls, want) {
		t.Fatalf("revert calls = %v, want %v", sys.calls, want)
	}
}

func TestStateController_CloakedWindowIsLeftAlone(t *testing.T) {
	sys := newFakeSystem(Info{Handle: 0x70, Title: "Other Desktop", IsVisible: true, IsCloaked: true})
	c, _ := newTestController(sys, StateOptions{Cloak: true, RestoreForeground: true})
	prior, err := c.EnsureCapturable(0x70)
	if err != nil {
		t.Fatal(err)
	}
	if prior != Unchanged {
		t.Fatalf("cloaked window should need no state change, got %+v", prior)
	}
	if err := c.Revert(0x70, prior); err != nil {
		t.Fatal(err)
	}
	if len(sys.calls) != 0 {
		t.Fatalf("cloaked window was touched: %v", sys.calls)
	}
	if !sys.windows[0x70].IsVisible {
		t.Fatal("cloaked window ended up hidden")
	}
}

func TestStateController_Uncloak(t *testing.T) {
	sys := sampleSystem()
	c, _ := newTestController(sys, StateOptions{Cloak: true})
	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Uncloak(0x20, &prior); err != nil {
		t.Fatal(err)
	}
	if prior.Cloaked {
		t.Fatal("prior still marked cloaked")
	}
	if _, ok := sys.alpha[0x20]; ok {
		t.Fatal("opacity not cleared")
	}
	sys.calls = nil
	if err := c.Uncloak(0x20, &prior); err != nil || len(sys.calls) != 0 {
		t.Fatalf("second uncloak should be a no-op: err=%v calls=%v", err, sys.calls)
	}
	if err := c.Revert(0x20, prior); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sys.calls, []string{"minimize"}) {
		t.Fatalf("revert calls = %v, want [minimize]", sys.calls)
	}
}

func TestStateController_RevertFailureIsReported(t *testing.T) {
	sys := sampleSystem()
	c, _ := newTestController(sys, StateOptions{})
	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	sys.minErr = errors.New("window busy")
	if err := c.Revert(0x20, prior); err == nil {
		t.Fatal("expected non-fatal revert error")
	}
}

func TestStateController_ReassertsForeground(t *testing.T) {
	sys := sampleSystem()
	sys.foreground = 0x50
	c, _ := newTestController(sys, StateOptions{RestoreForeground: true})
	prior, err := c.EnsureCapturable(0x20)
	if err != nil {
		t.Fatal(err)
	}
	sys.foreground = 0x20 // the target grabbed focus while restored
	if err := c.Revert(0x20, prior); err != nil {
		t.Fatal(err)
	}
	if sys.foreground != 0x50 {
		t.Fatalf("foreground = %v, want 0x50", sys.foreground)
	}
}
