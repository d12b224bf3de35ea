package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soocke/wincap/domain/window"
)

func (a *app) listCommand() *cobra.Command {
	var (
		filter string
		all    bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List top-level windows",
		Example: `  # All visible titled windows
  wincap list

  # Windows whose title contains "Notepad", as JSON
  wincap list --filter Notepad --format json

  # Include hidden and tool windows
  wincap list --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				a.cfg.IncludeHidden = true
			}
			s, err := a.session()
			if err != nil {
				return err
			}
			defer s.close()
			infos, err := listWindows(s.locator, filter)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			case "table":
				return printWindowTable(cmd, infos)
			default:
				return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
			}
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only windows whose title contains this text")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include hidden and tool windows")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table or json)")
	return cmd
}

// listWindows returns every eligible titled window, or only those matching
// filter under the locator's case policy.
func listWindows(loc *window.Locator, filter string) ([]window.Info, error) {
	if filter == "" {
		return loc.List()
	}
	matches, err := loc.FindByTitlePartial(filter)
	if err != nil {
		return nil, err
	}
	infos := make([]window.Info, 0, len(matches))
	for _, m := range matches {
		info, err := loc.Describe(m.Handle)
		if err != nil {
			continue // closed since enumeration
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func printWindowTable(cmd *cobra.Command, infos []window.Info) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tPID\tSIZE\tSTATE\tTITLE")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%dx%d\t%s\t%s\n", info.Handle, info.PID,
			info.ScreenRect.Width(), info.ScreenRect.Height(), stateFlags(info), info.Title)
	}
	return w.Flush()
}

func stateFlags(info window.Info) string {
	var flags []string
	if info.IsVisible {
		flags = append(flags, "visible")
	}
	if info.IsMinimized {
		flags = append(flags, "minimized")
	}
	if info.IsCloaked {
		flags = append(flags, "cloaked")
	}
	if info.IsForeground {
		flags = append(flags, "foreground")
	}
	if info.IsTool {
		flags = append(flags, "tool")
	}
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, ",")
}
