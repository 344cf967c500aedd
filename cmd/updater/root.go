package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitOK      = 0
	exitDiffs   = 1
	exitFailure = 2
)

// errDiffsFound ends a command that completed but found differences.
var errDiffsFound = &exitError{code: exitDiffs}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return exitFailure
}

// flagKeys maps command-line flags onto configuration keys. Only the flags a
// command defines are bound, when that command runs.
var flagKeys = map[string]string{
	"source":               "source_url",
	"file":                 "source_file",
	"reference":            "reference",
	"output":               "output",
	"format":               "format",
	"parallel":             "parallel",
	"timeout":              "timeout",
	"render-url":           "render_url",
	"render-timeout":       "render_timeout",
	"max-retries":          "max_retries",
	"respect-robots":       "respect_robots",
	"metrics-addr":         "metrics_addr",
	"prerequisite-aware":   "prerequisite_aware",
	"similarity-threshold": "similarity_threshold",
	"store-dir":            "store_dir",
	"database-url":         "database_url",
	"verbose":              "verbose",
}

// app is the state of one invocation. Command output goes to stdout and logs
// to stderr, so "extract --out -" stays valid JSON. A non-nil transport
// replaces the scraper's HTTP transport.
type app struct {
	v          *viper.Viper
	stdout     io.Writer
	stderr     io.Writer
	transport  http.RoundTripper
	configFile string
	logLevel   string
	verbose    bool
	cfg        *config.Config
}

func execute(ctx context.Context, args []string) int {
	a := &app{v: viper.New(), stdout: os.Stdout, stderr: os.Stderr}
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if code == exitFailure {
		slog.Error("updater failed", slog.Any("error", err))
	}
	return code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "updater",
		Short: "Reconcile a published course catalog against a reference",
		Long: `updater extracts the course catalog of a degree program from its published
web page, aligns its terms with a reference catalog and reports missing,
extra, recoded and miscounted courses.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./updater.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(a.extractCmd(), a.compareCmd(), a.runCmd())
	return root
}

// setup loads configuration for the running command and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, err := parseLevel(a.logLevel, a.verbose)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	slog.SetDefault(newLogger(a.stderr, level))

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := a.v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName("updater")
		a.v.AddConfigPath(".")
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func parseLevel(name string, verbose bool) (slog.Level, error) {
	if name == "" {
		if verbose {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
