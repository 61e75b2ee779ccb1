package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heraldbot/herald/pkg/announce"
	"github.com/heraldbot/herald/pkg/config"
	"github.com/heraldbot/herald/pkg/engine"
	"github.com/heraldbot/herald/pkg/log"
	"github.com/heraldbot/herald/pkg/metrics"
	"github.com/heraldbot/herald/pkg/store"
	"github.com/heraldbot/herald/pkg/upstream"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "Herald - mirrors a peoply.app event calendar into Discord",
	Long: `Herald watches the event calendar of one peoply.app organization
and mirrors it into one Discord text channel: every published event
gets an announcement, upstream edits update the announcement in
place, and past events stand as history.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Herald version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mirror agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logLevel, _ := cmd.Flags().GetString("log-level")
		if logLevel == "" {
			logLevel = cfg.Log.Level
		}
		logJSON, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(logLevel),
			JSONOutput: logJSON || cfg.Log.JSON,
		})
		metrics.SetVersion(Version)

		log.Logger.Info().
			Str("version", Version).
			Str("organization", cfg.Organization).
			Int64("channel_id", cfg.ChannelID).
			Msg("Herald starting")

		return run(cfg)
	},
}

func init() {
	runCmd.Flags().String("config", "herald.yaml", "Path to the configuration file")
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	eng := engine.New(engine.Config{Organization: cfg.Organization}, upstream.NewHTTPClient(), st, nil)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.Start(startCtx); err != nil {
		st.Close()
		return fmt.Errorf("start engine: %w", err)
	}

	ann, err := announce.New(eng, cfg.Token(), cfg.ChannelID, nil)
	if err != nil {
		eng.Stop()
		return fmt.Errorf("create announcer: %w", err)
	}
	if err := ann.Start(); err != nil {
		eng.Stop()
		return fmt.Errorf("start announcer: %w", err)
	}

	var metricsSrv *http.Server
	if cfg.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/healthz", metrics.HealthHandler())
		metricsSrv = &http.Server{Addr: cfg.Listen, Handler: mux}
		go func() {
			log.Logger.Info().Str("addr", cfg.Listen).Msg("Serving metrics and health")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	log.Logger.Info().
		Str("signal", received.String()).
		Int("tracked_events", eng.TrackedEvents()).
		Int("pending_changes", eng.PendingChanges()).
		Msg("Shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	ann.Stop()
	eng.Stop()

	log.Logger.Info().Msg("Goodbye")
	return nil
}
