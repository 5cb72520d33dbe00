package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sendertally/internal/config"
	"sendertally/internal/gmail"
	"sendertally/internal/tally"
)

const (
	configEnvVar   = config.EnvConfig
	defaultEnvFile = ".env"
)

var now = time.Now

// openMailbox signs in and returns the mailbox a command works on. Tests
// replace it with a fake.
var openMailbox = func(ctx context.Context, cfg config.Config, logger *slog.Logger) (tally.Mailbox, error) {
	svc, err := gmail.Authorize(ctx, gmail.AuthOptions{
		ConfigDir: cfg.ConfigDir,
		Browser:   gmail.OpenBrowser,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	mbox := gmail.NewMailbox(svc, gmail.MailboxOptions{
		CallTimeout:   cfg.CallTimeout,
		RatePerSecond: cfg.RatePerSecond,
		Logger:        logger,
	})
	return gmail.WithListRetry(mbox, cfg.ListRetries, logger), nil
}

// env is what every command starts from.
type env struct {
	cfg    config.Config
	loc    *time.Location
	logger *slog.Logger
}

// setup resolves configuration in order: defaults, YAML file, .env and
// SENDERTALLY_* variables, then command flags.
func setup(cmd *cobra.Command) (env, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return env{}, err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return env{}, errors.Wrapf(err, "load %s", envFile)
	}

	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return env{}, err
	}
	if strings.TrimSpace(cfgPath) == "" {
		cfgPath = os.Getenv(configEnvVar)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return env{}, err
	}
	if cfg, err = config.ApplyEnv(cfg); err != nil {
		return env{}, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return env{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return env{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return env{}, err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, loc: loc, logger: logger}, nil
}

// applyFlags copies explicitly set run flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	ints := map[string]*int{
		"max":     &cfg.MaxMessages,
		"top":     &cfg.Top,
		"workers": &cfg.Workers,
	}
	for name, dst := range ints {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		v, err := cmd.Flags().GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		cfg.Listen = f.Value.String()
	}
	return nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return buildLogger(cmd.ErrOrStderr(), format, level)
}

func buildLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.Errorf("unknown log format %q (want text or json)", format)
}

func newAggregator(e env, src tally.Source) *tally.Aggregator {
	return tally.NewAggregator(src, tally.Options{
		PageSize:    e.cfg.PageSize,
		Workers:     e.cfg.Workers,
		ReportEvery: e.cfg.ReportEvery,
		Logger:      e.logger,
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
