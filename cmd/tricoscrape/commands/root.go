package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trico-scraper/internal/concurrency"
	"trico-scraper/internal/config"
	"trico-scraper/internal/httpx"
	"trico-scraper/internal/trico"
)

// app holds what the persistent flags resolved to for one invocation.
type app struct {
	configPath string
	logLevel   string
	workers    int
	insecure   bool

	cfg config.Config
}

// NewRootCommand builds a fresh command tree; tests get their own flags each time.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tricoscrape",
		Short:         "tricoscrape reads the Tri-Co course guide into structured records.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file applied on top of the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().IntVar(&a.workers, "workers", 0, "worker pool size (0 = config value)")
	root.PersistentFlags().BoolVar(&a.insecure, "insecure", false, "skip TLS certificate verification")

	root.AddCommand(newInfoCommand(a), newSearchCommand(a))
	return root
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.workers > 0 {
		cfg.Workers = a.workers
	}
	if a.insecure {
		cfg.Insecure = true
		cfg.CABundle = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().
		Logger(), nil
}

// newScraper builds a scraper from the resolved config. workers <= 0 uses the config value.
func (a *app) newScraper(workers int, policy concurrency.FailurePolicy) (*trico.Scraper, error) {
	if workers <= 0 {
		workers = a.cfg.Workers
	}

	retry := httpx.SingleAttempt()
	if a.cfg.MaxAttempts > 1 {
		retry = httpx.DefaultRetryConfig()
		retry.MaxAttempts = a.cfg.MaxAttempts
	}

	return trico.New(trico.Options{
		Endpoints: trico.Endpoints{
			SearchURL:  a.cfg.TricoURL,
			LinkPrefix: a.cfg.TricoPrefix,
			InfoURL:    a.cfg.TricoInfoURL,
		},
		HTTP: httpx.ClientOptions{
			Timeout:           a.cfg.HTTPTimeout,
			Insecure:          a.cfg.Insecure,
			CABundle:          a.cfg.CABundle,
			RequestsPerSecond: a.cfg.RequestsPerSecond,
			UserAgent:         a.cfg.UserAgent,
		},
		Retry:    &retry,
		Workers:  workers,
		Policy:   policy,
		PageSize: a.cfg.PageSize,
	})
}
