package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dativo-io/guardian/internal/audit"
	"github.com/dativo-io/guardian/internal/config"
	"github.com/dativo-io/guardian/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP protection API",
	Long: `Serve starts the HTTP API (protect, batch, detect endpoints) with audit
persistence and rate limiting. Audit records older than the configured
retention window are pruned by a nightly sweep.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	cfg.WarnIfDefaultKey()

	g, err := newGuardian(cfg)
	if err != nil {
		return err
	}

	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return err
	}
	defer store.Close()

	// Nightly audit retention sweep
	scheduler := cron.New()
	_, err = scheduler.AddFunc("@daily", func() {
		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		n, err := store.Prune(context.Background(), cutoff)
		if err != nil {
			log.Error().Err(err).Msg("audit retention sweep failed")
			return
		}
		log.Info().Int64("pruned", n).Time("cutoff", cutoff).Msg("audit retention sweep complete")
	})
	if err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.NewServer(g,
		server.WithAuditStore(store),
		server.WithRateLimiter(server.NewRateLimiter(cfg.RequestsPerMinute*10, cfg.RequestsPerMinute)),
	)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("guardian HTTP API listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
