package cli

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"keyword-enricher/internal/config"
	"keyword-enricher/internal/server"
	"keyword-enricher/internal/service"
	"keyword-enricher/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload/download HTTP service",
		Long: `serve starts an HTTP service: POST a spreadsheet to /v1/enrich and the
enriched file comes back as the response. /healthz and /metrics are exposed
alongside. Jobs run one at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return Serve(ctx, opts.cfg, opts.log)
		},
	}
}

// Serve runs the HTTP service until ctx is canceled
func Serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	creds, err := config.LoadCredentials(cfg)
	if err != nil {
		return err
	}

	svc, err := service.New(cfg, creds, prometheus.DefaultRegisterer, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(ctx, cfg.Server, svc, svc, prometheus.DefaultGatherer, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info("Server stopped")
	return nil
}
