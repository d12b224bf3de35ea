package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/window"
)

// infoReport is the JSON shape of the info command.
type infoReport struct {
	window.Info
	Insets capture.Insets `json:"insets"`
	Crop   window.Rect    `json:"client_crop"`
}

func (a *app) infoCommand() *cobra.Command {
	var (
		tgt    target
		format string
	)
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe one window: state, geometry and frame insets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			defer s.close()
			h, err := tgt.resolve(s.locator)
			if err != nil {
				return err
			}
			info, err := s.locator.Describe(h)
			if err != nil {
				return err
			}
			report := infoReport{
				Info:   info,
				Insets: capture.FrameInsets(info.ScreenRect, info.ClientRect),
				Crop:   capture.ClientCrop(info.ScreenRect, info.ClientRect),
			}
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Handle:   %s\n", info.Handle)
			fmt.Fprintf(out, "Title:    %s\n", info.Title)
			fmt.Fprintf(out, "PID:      %d\n", info.PID)
			fmt.Fprintf(out, "State:    %s\n", stateFlags(info))
			fmt.Fprintf(out, "Window:   %s\n", info.ScreenRect)
			fmt.Fprintf(out, "Client:   %s\n", info.ClientRect)
			fmt.Fprintf(out, "Insets:   left=%d top=%d right=%d bottom=%d\n",
				report.Insets.Left, report.Insets.Top, report.Insets.Right, report.Insets.Bottom)
			return nil
		},
	}
	tgt.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "output format (text or json)")
	return cmd
}
