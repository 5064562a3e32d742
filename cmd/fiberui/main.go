package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/logging"
	"github.com/fiberui-dev/fiberui/internal/telemetry"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬┌┐ ┌─┐┬─┐┬ ┬┬
  ├┤ │├┴┐├┤ ├┬┘│ ││
  └  ┴└─┘└─┘┴└─└─┘┴
`

// Exit codes.
const (
	exitOK      = 0
	exitUnknown = 1
	exitFailure = 2
)

// exitError ends a command with a specific exit code. Its message, if
// any, has already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the state shared by all commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	out    *printer
	fs     afero.Fs

	logger  *slog.Logger
	metrics *telemetry.Metrics

	// Global flags.
	cwd       string
	registry  string
	logLevel  string
	logFormat string

	// jsonErrors is set once the resolved log format is json.
	jsonErrors bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		out:     newPrinter(stdout, stderr),
		fs:      afero.NewOsFs(),
		logger:  logging.Discard(),
		metrics: telemetry.NewMetrics(),
	}
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	if a.out.profile == termenv.Ascii {
		errors.DisableColors()
		defer errors.EnableColors()
	}

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	a.printError(err)
	return exitUnknown
}

// printError reports err on stderr in the format selected for logs.
func (a *app) printError(err error) {
	if a.jsonErrors || strings.EqualFold(a.logFormat, "json") {
		errors.FprintErrorJSON(a.stderr, err)
		return
	}
	errors.FprintError(a.stderr, err)
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fiberui",
		Short: "Copy accessible UI components into your project",
		Long: `fiberui copies component source files from a registry into your project.

Components are added as source code that you own. Files that already
exist are left untouched unless --overwrite is given.

Examples:
  fiberui init
  fiberui add button select
  fiberui list`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cwd, "cwd", "", "Project directory (default: current directory)")
	flags.StringVar(&a.registry, "registry", "", "Registry location: embedded, a directory, an http(s) URL or s3://bucket/prefix")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.listCmd(),
		a.serveCmd(),
		a.versionCmd(),
	)
	return rootCmd
}
