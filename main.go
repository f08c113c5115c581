package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"relaychat/internal/app"
	"relaychat/internal/config"
	"relaychat/internal/db"
	"relaychat/internal/logger"
	"relaychat/internal/models"
	"relaychat/internal/relay"
	"relaychat/internal/ui"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command gets after the root pre-run.
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
	client *relay.Client
}

func (e *env) newApp() *app.App {
	return app.New(e.client, e.cfg.Model, e.log)
}

// run wraps a RunE so the log is flushed and closed whether or not fn fails.
// cobra skips PersistentPostRun after an error.
func (e *env) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer e.finish()
		return fn(cmd, args)
	}
}

func (e *env) finish() {
	if e.closer == nil {
		return
	}
	if e.cfg.Debug {
		logRequestCounters(e.log)
	}
	_ = e.closer.Close()
	e.closer = nil
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var (
		e             env
		baseURL       string
		model         string
		compareModels []string
		logFile       string
		prefsPath     string
		timeout       time.Duration
		debug         bool
	)

	rootCmd := &cobra.Command{
		Use:          "relaychat",
		Short:        "Terminal chat client for a multi-model LLM relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("model") {
				cfg.Model = model
			}
			if flags.Changed("compare-models") {
				cfg.CompareModels = compareModels
			}
			if flags.Changed("log-file") {
				cfg.LogFile = logFile
			}
			if flags.Changed("prefs") {
				cfg.PrefsPath = prefsPath
			}
			if flags.Changed("timeout") {
				cfg.HTTPTimeout = timeout
			}
			if flags.Changed("debug") {
				cfg.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.LogFile == "" {
				dir, err := db.ConfigDir()
				if err != nil {
					return fmt.Errorf("locate config dir: %w", err)
				}
				cfg.LogFile = filepath.Join(dir, "relaychat.log")
			}
			log, closer, err := logger.Open(cfg.LogFile, cfg.Debug)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}

			client, err := relay.New(cfg.BaseURL,
				relay.WithHTTPTimeout(cfg.HTTPTimeout),
				relay.WithListRetries(cfg.ListRetries),
				relay.WithLogger(log),
				relay.WithDebugLogging(cfg.Debug),
			)
			if err != nil {
				_ = closer.Close()
				return err
			}

			log.Info().
				Str("command", cmd.Name()).
				Str("base_url", cfg.BaseURL).
				Str("model", cfg.Model).
				Strs("compare_models", cfg.CompareModels).
				Dur("http_timeout", cfg.HTTPTimeout).
				Int("list_retries", cfg.ListRetries).
				Bool("debug", cfg.Debug).
				Msg("Configuration loaded")

			e = env{cfg: cfg, log: log, closer: closer, client: client}
			return nil
		},
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			return runTUI(&e)
		}),
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&baseURL, "base-url", "", "relay base URL (env RELAYCHAT_BASE_URL)")
	pf.StringVarP(&model, "model", "m", "", "default model for single mode (env RELAYCHAT_MODEL)")
	pf.StringSliceVar(&compareModels, "compare-models", nil, "models for compare mode (env RELAYCHAT_COMPARE_MODELS)")
	pf.StringVar(&logFile, "log-file", "", "log file path (env RELAYCHAT_LOG_FILE)")
	pf.StringVar(&prefsPath, "prefs", "", "preferences database path (env RELAYCHAT_PREFS_PATH)")
	pf.DurationVar(&timeout, "timeout", 0, "HTTP timeout per request (env RELAYCHAT_HTTP_TIMEOUT)")
	pf.BoolVarP(&debug, "debug", "d", false, "log requests and responses (env RELAYCHAT_DEBUG)")

	rootCmd.AddCommand(newListCmd(&e))
	rootCmd.AddCommand(newRemoveCmd(&e))
	rootCmd.AddCommand(newAskCmd(&e))

	return rootCmd
}

func runTUI(e *env) error {
	prefs := models.Prefs{
		Criteria:      models.DefaultCriteria(),
		Model:         e.cfg.Model,
		CompareModels: e.cfg.CompareModels,
		Mode:          models.ModeSingle,
	}

	conn, err := db.OpenPrefsDB(e.cfg.PrefsPath)
	if err != nil {
		e.log.Warn().Err(err).Msg("preferences unavailable, using defaults")
		conn = nil
	} else {
		defer conn.Close()
		if p, err := db.LoadPrefs(conn, prefs); err != nil {
			e.log.Warn().Err(err).Msg("loading preferences failed")
		} else {
			prefs = p
		}
	}

	a := app.New(e.client, prefs.Model, e.log)
	p := ui.NewProgram(ui.Options{App: a, DB: conn, Log: e.log, Prefs: prefs})
	if _, err := p.Run(); err != nil {
		e.log.Error().Err(err).Msg("ui exited with error")
		return err
	}
	return nil
}

// logRequestCounters writes the relay request counters to the log.
func logRequestCounters(log zerolog.Logger) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Debug().Err(err).Msg("gather metrics")
		return
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "relaychat_") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			ev := log.Debug().Str("metric", mf.GetName())
			for _, lp := range metric.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			ev.Float64("value", metric.GetCounter().GetValue()).Msg("request counter")
		}
	}
}
