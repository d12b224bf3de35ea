package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soocke/wincap/domain/window"
)

// target selects a window by exactly one of title, partial title, handle or pid.
type target struct {
	title   string
	partial string
	handle  string
	pid     uint32
}

func (t *target) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&t.title, "title", "t", "", "exact window title")
	f.StringVarP(&t.partial, "partial", "p", "", "substring of the window title (first match wins)")
	f.StringVar(&t.handle, "handle", "", "window handle, decimal or 0x-prefixed hex")
	f.Uint32Var(&t.pid, "pid", 0, "owning process id (first window wins)")
	cmd.MarkFlagsOneRequired("title", "partial", "handle", "pid")
	cmd.MarkFlagsMutuallyExclusive("title", "partial", "handle", "pid")
}

// resolve returns the selected handle. Handles are passed through unchecked;
// the capture itself reports stale or malformed ones.
func (t *target) resolve(loc *window.Locator) (window.Handle, error) {
	switch {
	case t.handle != "":
		return window.ParseHandle(t.handle)
	case t.title != "":
		return loc.FindByTitle(t.title)
	case t.partial != "":
		matches, err := loc.FindByTitlePartial(t.partial)
		if err != nil {
			return 0, err
		}
		return first(matches, fmt.Sprintf("title containing %q", t.partial))
	case t.pid != 0:
		matches, err := loc.FindByPID(t.pid)
		if err != nil {
			return 0, err
		}
		return first(matches, fmt.Sprintf("pid %d", t.pid))
	}
	return 0, errors.New("one of --title, --partial, --handle or --pid is required")
}

func first(matches []window.Match, what string) (window.Handle, error) {
	if len(matches) == 0 {
		return 0, fmt.Errorf("%s: %w", what, window.ErrNotFound)
	}
	return matches[0].Handle, nil
}
