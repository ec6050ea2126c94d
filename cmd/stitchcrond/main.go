package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/inful/stitchcron/internal/config"
	"github.com/inful/stitchcron/internal/configwatch"
	"github.com/inful/stitchcron/internal/cronoracle"
	"github.com/inful/stitchcron/internal/dispatch"
	"github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/metrics"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/resolver"
	"github.com/inful/stitchcron/internal/tzoracle"
	"github.com/inful/stitchcron/internal/version"
	"gopkg.in/yaml.v3"
)

// Root CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Schedules config file path" default:"schedules.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" help:"Start the scheduler daemon"`
	Validate ValidateCmd `cmd:"" help:"Validate a schedules config file"`
	List     ListCmd     `cmd:"" help:"List the schedules defined in a config file"`
	Add      AddCmd      `cmd:"" help:"Append a schedule to a config file"`
}

// Global is shared context passed to every subcommand.
type Global struct {
	Logger *slog.Logger
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Description("stitchcrond: a recurring-event scheduler daemon."),
		kong.Vars{"version": version.Version},
	)

	logger := slog.Default()
	errorAdapter := errors.NewCLIErrorAdapter(cli.Verbose, logger)
	globals := &Global{Logger: logger}

	if err := parser.Run(globals, cli); err != nil {
		errorAdapter.HandleError(err)
	}
}

// RunCmd starts the daemon: it loads the config, primes the dispatcher,
// watches the config file for edits, and serves /metrics when enabled.
type RunCmd struct{}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	logLevel := parseLogLevel(cfg.Daemon.Logging.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	tz := tzoracle.New()
	res := resolver.New(cronoracle.New())
	d := dispatch.New(res, oracle.SystemTimeOracle{}, logger)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Daemon.Metrics.Enabled {
		reg := prom.NewRegistry()
		promRecorder := metrics.NewPrometheusRecorder(reg)
		recorder = promRecorder

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		server := &http.Server{Addr: cfg.Daemon.Metrics.Listen, Handler: mux}
		go func() {
			logger.Info("serving metrics", "listen", cfg.Daemon.Metrics.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}
	d.SetRecorder(recorder)

	d.Subscribe(func(scheduleID string) {
		logger.Info("schedule fired", "schedule_id", scheduleID)
	})

	watcher, err := configwatch.New(root.Config, d, tz, logger)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.LoadInitial(); err != nil {
		return fmt.Errorf("load initial config: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}

	if err := d.Start(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("stitchcrond started, waiting for shutdown signal")
	<-ctx.Done()

	logger.Info("shutdown signal received, stopping")
	watcher.Stop()
	d.Abort()

	select {
	case <-d.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("dispatcher did not stop within the shutdown timeout")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateCmd loads and validates a config file without starting anything.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	fmt.Printf("configuration is valid: %d schedule(s)\n", len(cfg.Schedules))
	return nil
}

// ListCmd prints a summary of the schedules defined in a config file.
type ListCmd struct{}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	for _, sd := range cfg.Schedules {
		kind := "one-shot"
		if sd.Frequency != nil {
			kind = sd.Frequency.Kind
		}
		fmt.Printf("%-24s %-20s %-10s %s\n", sd.ID, sd.Timezone, sd.Priority, kind)
	}
	return nil
}

// AddCmd appends a new schedule descriptor to a config file.
type AddCmd struct {
	ID        string `required:"" help:"Unique schedule id"`
	Timezone  string `required:"" help:"IANA timezone name"`
	Anchor    string `required:"" help:"ISO-8601 local date-time, no offset (e.g. 2026-01-01T02:00:00)"`
	Priority  string `help:"High|Medium|Low" default:"Medium"`
	Frequency string `help:"hourly|daily|weekly|monthly|yearly, omit for a one-shot schedule"`
	Every     int    `help:"repetition multiplier" default:"1"`
}

func (a *AddCmd) Run(g *Global, root *CLI) error {
	var cfg *config.Config
	if _, statErr := os.Stat(root.Config); os.IsNotExist(statErr) {
		cfg = &config.Config{}
	} else {
		loaded, err := config.Load(root.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	for _, sd := range cfg.Schedules {
		if sd.ID == a.ID {
			return fmt.Errorf("schedule id %q already exists", a.ID)
		}
	}

	descriptor := config.ScheduleDescriptor{
		ID:          a.ID,
		Timezone:    a.Timezone,
		NaiveAnchor: a.Anchor,
		Priority:    a.Priority,
	}
	if a.Frequency != "" {
		descriptor.Frequency = &config.FrequencyDescriptor{Kind: a.Frequency, Every: a.Every}
	}
	cfg.Schedules = append(cfg.Schedules, descriptor)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(root.Config, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("added schedule %q to %s\n", a.ID, root.Config)
	return nil
}
