// Package cmd provides the CLI commands for edmindex.
package cmd

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aman-CERP/edmindex/internal/config"
	"github.com/Aman-CERP/edmindex/internal/docfinity"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/internal/logging"
	"github.com/Aman-CERP/edmindex/internal/output"
	"github.com/Aman-CERP/edmindex/internal/profiling"
	"github.com/Aman-CERP/edmindex/internal/telemetry"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
	"github.com/Aman-CERP/edmindex/pkg/version"
)

// annotationNoSetup marks commands that run without config, logging or telemetry.
const annotationNoSetup = "edmindex/no-setup"

const telemetryShutdownTimeout = 5 * time.Second

// rootOptions holds the persistent flags and the state built from them.
type rootOptions struct {
	url          string
	apiKey       string
	auditUser    string
	configPath   string
	otlpEndpoint string
	trace        bool
	debug        bool
	noColor      bool
	profile      profiling.Options

	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.TracerProvider
	cleanups []func()
}

// NewRootCmd creates the root command for the edmindex CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edmindex",
		Short: "Upload and index documents in DocFinity",
		Long: `edmindex uploads documents to a DocFinity server and writes their index
metadata, resolving datasource-driven fields on the way.

Connection settings come from ~/.config/edmindex/config.yaml, .edmindex.yaml,
EDMINDEX_* environment variables and the flags below, in increasing precedence.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}
	cmd.SetVersionTemplate("edmindex version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return edmerrors.ValidationError(err.Error(), err).
			WithSuggestion("Run '" + c.CommandPath() + " --help' for usage")
	})

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.url, "url", "u", "", "DocFinity server URL (e.g. https://edm.example.edu/docfinity)")
	pf.StringVarP(&opts.apiKey, "key", "k", "", "DocFinity API key")
	pf.StringVar(&opts.auditUser, "audit-user", "", "User recorded in the DocFinity audit trail")
	pf.BoolVar(&opts.trace, "trace", false, "Log request and response bodies")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging and mirror logs to stderr")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: user and project config)")
	pf.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/gRPC endpoint for trace export")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&opts.profile.CPUPath, "profile-cpu", "", "Write a CPU profile to file")
	pf.StringVar(&opts.profile.HeapPath, "profile-mem", "", "Write a heap profile to file")
	pf.StringVar(&opts.profile.TracePath, "profile-trace", "", "Write an execution trace to file")

	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with os.Args and stops on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one command line and prints any error to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := &rootOptions{}
	defer opts.close()

	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !stderrors.Is(err, errReported) {
		out := output.New(stderr, opts.noColor)
		if opts.debug {
			out.Raw(edmerrors.FormatForUser(err, true))
		} else {
			out.Raw(edmerrors.FormatForCLI(err))
		}
	}
	return err
}

// errReported is returned by commands that already printed their failure.
var errReported = stderrors.New("failure already reported")

// setup loads configuration, applies flags and starts logging and telemetry.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if cmd.Annotations[annotationNoSetup] == "true" {
		return nil
	}

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if o.debug || cfg.Logging.Trace {
		logCfg.Level = "debug"
	}
	if o.debug {
		logCfg.WriteToStderr = true
		logCfg.Stderr = cmd.ErrOrStderr()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return edmerrors.IOError("failed to open log file", err).
			WithDetail("path", logging.ResolvePath(cfg.Logging.File))
	}
	previous := slog.Default()
	slog.SetDefault(logger)
	o.onClose(func() {
		slog.SetDefault(previous)
		cleanup()
	})
	o.logger = logger.With(slog.String("command", cmd.CommandPath()))

	tp, shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return edmerrors.ConfigError("failed to start trace export", err).
			WithDetail("endpoint", cfg.Telemetry.OTLPEndpoint)
	}
	o.tracer = tp
	o.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("trace export shutdown failed", slog.String("error", err.Error()))
		}
	})

	if o.profile.Enabled() {
		session, err := profiling.Start(o.profile)
		if err != nil {
			return err
		}
		o.onClose(func() {
			if err := session.Stop(); err != nil {
				slog.Warn("failed to write profile", edmerrors.LogAttrs(err)...)
			}
		})
	}

	o.logger.Debug("configuration loaded",
		slog.String("url", cfg.Server.URL),
		slog.Bool("trace", cfg.Logging.Trace),
		slog.String("version", version.Version))
	return nil
}

// loadConfig loads the layered config (or --config) and applies flags on top.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Server.URL = o.url
	}
	if flags.Changed("key") {
		cfg.Server.APIKey = o.apiKey
	}
	if flags.Changed("audit-user") {
		cfg.Server.AuditUser = o.auditUser
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = o.otlpEndpoint
	}
	if o.trace {
		cfg.Logging.Trace = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, edmerrors.ConfigError("invalid configuration: "+err.Error(), err)
	}
	return cfg, nil
}

// newIndexer builds the DocFinity client and the indexer over it.
func (o *rootOptions) newIndexer() (*indexer.Indexer, error) {
	cfg := o.cfg
	client, err := docfinity.New(docfinity.Config{
		BaseURL:    cfg.Server.URL,
		APIKey:     cfg.Server.APIKey,
		AuditUser:  cfg.Server.AuditUser,
		Timeout:    cfg.Server.Timeout,
		MaxRetries: cfg.Server.MaxRetries,
		CacheSize:  cfg.Cache.DocumentTypes,
		CacheTTL:   cfg.Cache.TTL,
		Trace:      cfg.Logging.Trace,
	}, docfinity.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	return indexer.New(client,
		indexer.WithLogger(o.logger),
		indexer.WithTracerProvider(o.tracer),
		indexer.WithDateLayout(cfg.Indexing.DateFormat),
	)
}

func (o *rootOptions) stdout(cmd *cobra.Command) *output.Writer {
	return output.New(cmd.OutOrStdout(), o.noColor)
}

func (o *rootOptions) onClose(fn func()) {
	o.cleanups = append(o.cleanups, fn)
}

// close releases everything setup acquired, in reverse order.
func (o *rootOptions) close() {
	for i := len(o.cleanups) - 1; i >= 0; i-- {
		o.cleanups[i]()
	}
	o.cleanups = nil
}
