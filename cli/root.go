package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	petalcalc "github.com/petal-labs/petalcalc"
	"github.com/petal-labs/petalcalc/config"
	petalotel "github.com/petal-labs/petalcalc/otel"
	"github.com/petal-labs/petalcalc/runtime"
)

const shutdownTimeout = 5 * time.Second

// NewRootCmd creates the petalcalc command tree. Without a subcommand it
// runs the interactive shell.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "petalcalc",
		Short: "Arithmetic expression calculator",
		Long:  "petalcalc evaluates arithmetic expressions with + - * / // % ** and parentheses.",
		Args:  cobra.NoArgs,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		RunE:         runShell,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a petalcalc.yaml config file")
	flags.Bool("verbose", false, "Enable verbose/debug logging")
	flags.Bool("quiet", false, "Suppress all log output except errors")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Int("max-depth", 0, "Maximum expression nesting depth (default from config)")
	flags.String("otlp-endpoint", "", "Export traces to this OTLP/HTTP endpoint")
	flags.Bool("summary", false, "Log evaluation counts when the session ends")

	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("petalcalc version %s\n", version))

	cmd.AddCommand(NewEvalCmd())
	cmd.AddCommand(NewCheckCmd())
	return cmd
}

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	telemetry *petalotel.Telemetry
	calc      *petalcalc.Calculator
	sessionID string
	noColor   bool
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")

	cfg, usedPath, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, "", exitError(exitConfig, "loading config: %v", err)
	}
	if flags.Changed("max-depth") {
		cfg.Limits.MaxDepth, _ = flags.GetInt("max-depth")
		if cfg.Limits.MaxDepth <= 0 {
			return config.Config{}, "", exitError(exitConfig, "--max-depth must be positive")
		}
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint, _ = flags.GetString("otlp-endpoint")
	}
	if flags.Changed("summary") {
		cfg.Telemetry.Summary, _ = flags.GetBool("summary")
	}
	return cfg, usedPath, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	noColor, _ := flags.GetBool("no-color")

	cfg, usedPath, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Logging, verbose, quiet)
	if err != nil {
		return nil, exitError(exitConfig, "configuring logger: %v", err)
	}
	if usedPath != "" {
		logger.Debug("loaded config", "path", usedPath)
	}

	tel, err := petalotel.Setup(cmd.Context(), petalotel.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, exitError(exitConfig, "configuring telemetry: %v", err)
	}

	sessionID := runtime.NewSessionID()
	calc := petalcalc.New(
		petalcalc.WithMaxDepth(cfg.Limits.MaxDepth),
		petalcalc.WithLogger(logger.With("session_id", sessionID)),
		petalcalc.WithSessionID(sessionID),
		petalcalc.WithEventHandler(tel.Handler()),
		petalcalc.WithEmitterDecorator(tel.Decorator()),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		calc:      calc,
		sessionID: sessionID,
		noColor:   noColor,
	}, nil
}

// session brackets fn with session events and reports the summary
// afterwards. fn returns the number of evaluations it ran.
func (a *app) session(ctx context.Context, fn func() (int, error)) error {
	start := time.Now()
	a.calc.Emit(runtime.NewEvent(runtime.EventSessionStarted, a.sessionID))

	count, runErr := fn()

	a.calc.Emit(runtime.NewEvent(runtime.EventSessionFinished, a.sessionID).
		WithElapsed(time.Since(start)).
		WithPayload(runtime.PayloadCount, count))

	if a.cfg.Telemetry.Summary {
		summary, err := a.telemetry.Summary(ctx)
		if err != nil {
			a.logger.Warn("collecting session summary", "error", err)
		} else {
			a.logger.Info("session summary",
				"session_id", a.sessionID,
				"evaluations", summary.Evaluations,
				"failures", summary.Failures,
			)
		}
	}
	return runErr
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	interactive := isTerminal(in)

	shell := &Shell{
		In:          in,
		Out:         out,
		Calc:        a.calc,
		Prompt:      a.cfg.Shell.Prompt,
		Banner:      a.cfg.Shell.Banner,
		Interactive: interactive,
		Styles:      NewStyles(out, !a.noColor && interactive && isTerminal(out)),
	}
	return a.session(cmd.Context(), shell.Run)
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
