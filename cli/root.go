// Package cli implements the wincap command line: listing windows, describing
// one, and capturing it to a file or a preview window.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soocke/wincap/config"
	"github.com/soocke/wincap/domain/capture"
	"github.com/soocke/wincap/domain/platform"
	"github.com/soocke/wincap/domain/window"
)

const envPrefix = "WINCAP"

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitNotFound    = 2
	exitWindowGone  = 3
	exitAcquisition = 4
)

// LoggerFactory builds the process logger once the level is known.
type LoggerFactory func(level slog.Leveler) *slog.Logger

// Opener connects to the window system.
type Opener func(logger *slog.Logger) (platform.Backend, error)

// app carries state shared by the commands of one invocation.
type app struct {
	v         *viper.Viper
	cfgPath   string
	newLogger LoggerFactory
	open      Opener
	out       io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand assembles the command tree.
func NewRootCommand(newLogger LoggerFactory, open Opener, out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), newLogger: newLogger, open: open, out: out}
	root := &cobra.Command{
		Use:   "wincap",
		Short: "Capture a single window, even when minimized or covered",
		Long: `wincap captures the pixels of one top-level window into an image file.

Minimized windows are restored without taking focus, captured, and minimized
again. Occluded windows are rendered off-screen where the OS allows it, with a
screen copy as fallback.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (.json, .yaml or .yml)")
	pf.Bool("debug", false, "enable debug logging and resource checks")
	pf.Bool("include-hidden", false, "consider hidden and tool windows")
	pf.Bool("ignore-case", false, "match titles case-insensitively")
	pf.Int("settle-ms", 0, "pause after restoring a minimized window, in milliseconds")
	pf.Bool("cloak", false, "keep a restored window nearly transparent while capturing")
	_ = a.v.BindPFlag("debug", pf.Lookup("debug"))
	_ = a.v.BindPFlag("include_hidden", pf.Lookup("include-hidden"))
	_ = a.v.BindPFlag("restore_settle_ms", pf.Lookup("settle-ms"))
	_ = a.v.BindPFlag("cloak_while_restored", pf.Lookup("cloak"))

	root.AddCommand(a.listCommand(), a.infoCommand(), a.captureCommand())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(newLogger LoggerFactory, open Opener, args []string) int {
	root := NewRootCommand(newLogger, open, os.Stdout)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var acqErr *capture.AcquisitionError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &acqErr):
		return exitAcquisition
	case errors.Is(err, window.ErrWindowGone):
		return exitWindowGone
	case errors.Is(err, window.ErrNotFound), errors.Is(err, window.ErrInvalidHandle):
		return exitNotFound
	default:
		return exitError
	}
}

// setup layers file, environment and flags into a.cfg and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("ignore-case"); f != nil && f.Changed {
		cfg.CaseSensitiveTitles = false
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.logger = a.newLogger(level)
	a.logger.Debug("config loaded", "path", a.cfgPath, "config", fmt.Sprintf("%+v", *cfg))
	return nil
}

// loadConfig reads the config file and overlays WINCAP_* variables and bound
// flags through viper. File values act as viper defaults so env and flags win.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	base := config.DefaultConfig()
	if path != "" {
		var err error
		if base, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	v.SetDefault("debug", base.Debug)
	v.SetDefault("include_hidden", base.IncludeHidden)
	v.SetDefault("case_sensitive_titles", base.CaseSensitiveTitles)
	v.SetDefault("capture_mode", string(base.CaptureMode))
	v.SetDefault("restore_original_state", base.RestoreOriginalState)
	v.SetDefault("restore_settle_ms", base.RestoreSettleMS)
	v.SetDefault("cloak_while_restored", base.CloakWhileRestored)
	v.SetDefault("restore_foreground", base.RestoreForeground)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := *base
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("apply overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// session holds an open backend and the components built on it.
type session struct {
	backend platform.Backend
	locator *window.Locator
}

func (a *app) session() (*session, error) {
	b, err := a.open(a.logger)
	if err != nil {
		return nil, err
	}
	loc := window.NewLocator(b, window.LocatorOptions{
		IncludeHidden:   a.cfg.IncludeHidden,
		CaseInsensitive: !a.cfg.CaseSensitiveTitles,
	}, a.logger)
	return &session{backend: b, locator: loc}, nil
}

func (s *session) close() { _ = s.backend.Close() }
