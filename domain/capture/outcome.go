package capture

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Kind tags a capture outcome.
type Kind int

const (
	// KindSuccess carries a non-degenerate image.
	KindSuccess Kind = iota
	// KindEmptyRegion means the target was well formed but had zero area.
	KindEmptyRegion
	// KindAcquisitionFailed means every strategy was exhausted.
	KindAcquisitionFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEmptyRegion:
		return "empty_region"
	case KindAcquisitionFailed:
		return "acquisition_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason explains an acquisition failure.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonDegenerateSurface: the OS call worked but produced blank pixels.
	ReasonDegenerateSurface
	// ReasonOSRejected: the OS refused the call or the strategy does not apply.
	ReasonOSRejected
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonDegenerateSurface:
		return "degenerate_surface"
	case ReasonOSRejected:
		return "os_rejected"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Attempt records one strategy invocation.
type Attempt struct {
	Strategy string
	Kind     Kind
	Reason   Reason
	Err      error
	Elapsed  time.Duration
}

func (a Attempt) String() string {
	if a.Kind == KindSuccess {
		return fmt.Sprintf("%s: ok (%s)", a.Strategy, a.Elapsed)
	}
	if a.Err != nil {
		return fmt.Sprintf("%s: %s: %v", a.Strategy, a.Reason, a.Err)
	}
	return fmt.Sprintf("%s: %s", a.Strategy, a.Reason)
}

// AcquisitionError describes why no strategy produced usable pixels.
type AcquisitionError struct {
	Reason   Reason
	Attempts []Attempt
}

func (e *AcquisitionError) Error() string {
	if len(e.Attempts) == 0 {
		return "acquisition failed: " + e.Reason.String() + ": no strategies"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return "acquisition failed: " + e.Reason.String() + " [" + strings.Join(parts, "; ") + "]"
}

// Unwrap exposes the per-attempt causes to errors.Is / errors.As.
func (e *AcquisitionError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Outcome is the tagged result of a capture. Image is non-nil only for
// KindSuccess and is owned by the caller.
type Outcome struct {
	Kind     Kind
	Image    *image.RGBA
	Err      *AcquisitionError
	Strategy string
	Cropped  bool
	Attempts []Attempt
	// Warnings collects non-fatal problems such as a failed state revert.
	Warnings []string
}

// OK reports whether the outcome carries an image.
func (o Outcome) OK() bool { return o.Kind == KindSuccess && o.Image != nil }

// Size returns the image dimensions, or zero.
func (o Outcome) Size() (int, int) {
	if o.Image == nil {
		return 0, 0
	}
	b := o.Image.Bounds()
	return b.Dx(), b.Dy()
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		w, h := o.Size()
		return fmt.Sprintf("success %dx%d via %s", w, h, o.Strategy)
	case KindAcquisitionFailed:
		if o.Err != nil {
			return o.Err.Error()
		}
	}
	return o.Kind.String()
}

// Succeeded builds a success outcome.
func Succeeded(strategy string, img *image.RGBA) Outcome {
	return Outcome{Kind: KindSuccess, Image: img, Strategy: strategy}
}

// Rejected builds a failure for an OS-level refusal.
func Rejected(err error) Outcome {
	return Outcome{Kind: KindAcquisitionFailed, Err: &AcquisitionError{Reason: ReasonOSRejected}, Attempts: []Attempt{{Kind: KindAcquisitionFailed, Reason: ReasonOSRejected, Err: err}}}
}

// Degenerate builds a failure for a blank or stale surface.
func Degenerate() Outcome {
	return Outcome{Kind: KindAcquisitionFailed, Err: &AcquisitionError{Reason: ReasonDegenerateSurface}, Attempts: []Attempt{{Kind: KindAcquisitionFailed, Reason: ReasonDegenerateSurface}}}
}

// EmptyRegion builds the zero-area outcome.
func EmptyRegion() Outcome { return Outcome{Kind: KindEmptyRegion} }

// reason returns the failure reason carried by o.
func (o Outcome) reason() Reason {
	if o.Err != nil {
		return o.Err.Reason
	}
	if o.Kind == KindAcquisitionFailed {
		return ReasonOSRejected
	}
	return ReasonNone
}

// cause returns the first underlying error carried by o.
func (o Outcome) cause() error {
	for _, a := range o.Attempts {
		if a.Err != nil {
			return a.Err
		}
	}
	return nil
}
