package cli

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soocke/wincap/config"
	"github.com/soocke/wincap/debug"
	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
	"github.com/soocke/wincap/ui/images"
	"github.com/soocke/wincap/ui/view"
)

func (a *app) captureCommand() *cobra.Command {
	var (
		tgt       target
		mode      string
		out       string
		noRestore bool
		preview   bool
		dark      bool
		repeat    int
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a window to an image file",
		Example: `  # Client area of Notepad, even if minimized
  wincap capture --title "Untitled - Notepad" --out notepad.png

  # Whole window including the frame, by handle
  wincap capture --handle 0x1A2B --mode full --out frame.bmp

  # Capture ten times and report handle growth
  wincap capture --partial Chrome --repeat 10 --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noRestore {
				a.cfg.RestoreOriginalState = false
			}
			if out != "" {
				// Fail on a bad extension before touching any window.
				if _, err := images.FormatFromPath(out); err != nil {
					return err
				}
			}
			view.SetDark(dark)
			if repeat < 1 {
				repeat = 1
			}
			return a.runCapture(cmd, &tgt, out, preview, repeat)
		},
	}
	tgt.register(cmd)
	f := cmd.Flags()
	// --mode reaches a.cfg through the viper binding below.
	f.StringVarP(&mode, "mode", "m", string(config.ModeClient), "capture mode (full or client)")
	f.StringVarP(&out, "out", "o", "", "output file; format from extension (.png, .jpg, .bmp, .gif)")
	f.BoolVar(&noRestore, "no-restore", false, "leave a minimized window restored after capture")
	f.BoolVar(&preview, "preview", false, "show the capture in a window")
	f.BoolVar(&dark, "dark", false, "use the dark palette for --preview")
	f.IntVar(&repeat, "repeat", 1, "capture this many times; the last frame is kept")
	_ = a.v.BindPFlag("capture_mode", f.Lookup("mode"))
	return cmd
}

func (a *app) runCapture(cmd *cobra.Command, tgt *target, out string, preview bool, repeat int) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	defer s.close()

	h, err := tgt.resolve(s.locator)
	if err != nil {
		return err
	}
	wc := capture.NewWindowCapture(s.backend, s.backend.Strategies(), a.cfg, a.logger)

	var before debug.Resources
	if a.cfg.Debug {
		before = debug.Snapshot()
		if repeat > 1 {
			stop := make(chan struct{})
			defer close(stop)
			debug.StartResourceLogger(time.Second, a.logger, stop)
		}
	}
	var last capture.Outcome
	for i := 0; i < repeat; i++ {
		if last, err = wc.Capture(h, a.cfg.CaptureMode); err != nil {
			return err
		}
		for _, w := range last.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
	}
	if a.cfg.Debug {
		after := debug.Snapshot()
		a.logger.Debug("capture.stats", "stats", fmt.Sprintf("%+v", wc.Stats()))
		a.logger.Debug("capture.resources", after.Attrs()...)
		for _, g := range debug.Grew(before, after) {
			a.logger.Warn("resource growth across captures", "repeat", repeat, "counter", g)
		}
	}

	switch last.Kind {
	case capture.KindEmptyRegion:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to capture (empty region)\n", h)
		return nil
	case capture.KindAcquisitionFailed:
		return fmt.Errorf("capture %s: %w", h, last.Err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), describeOutcome(h, last))
	if out != "" {
		n, err := images.Save(out, last.Image)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", out, humanize.IBytes(uint64(n)))
	}
	if preview {
		view.ShowPreview(fmt.Sprintf("wincap %s", h), last.Image, describeOutcome(h, last), func() (image.Image, string, error) {
			o, err := wc.Capture(h, a.cfg.CaptureMode)
			if err != nil {
				return nil, "", err
			}
			if !o.OK() {
				return nil, "", errors.New(o.String())
			}
			return o.Image, describeOutcome(h, o), nil
		})
	}
	return nil
}

func describeOutcome(h window.Handle, o capture.Outcome) string {
	w, ht := o.Size()
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %dx%d via %s", h, w, ht, o.Strategy)
	if o.Cropped {
		b.WriteString(" (cropped from full window)")
	}
	if n := len(o.Attempts); n > 1 {
		fmt.Fprintf(&b, " after %d attempts", n)
	}
	var total time.Duration
	for _, at := range o.Attempts {
		total += at.Elapsed
	}
	if total > 0 {
		fmt.Fprintf(&b, " in %s", total.Round(time.Millisecond))
	}
	return b.String()
}
