package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/httpapi"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/otel"
)

func newServeCmd() *cobra.Command {
	var (
		addr string
		dev  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WorkForce HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			settings := config.FromEnv()
			if addr != "" {
				settings.ListenAddr = addr
			}

			metricsHandler, err := otel.InitMeterProvider(cmd.Context(), "workforce")
			if err != nil {
				slog.Warn("metrics init failed; serving without /metrics", "err", err)
				metricsHandler = nil
			} else if err := otel.InitMetrics(cmd.Context()); err != nil {
				slog.Warn("metric instruments init failed", "err", err)
			}

			app, err := httpapi.NewApp(httpapi.ServerOptions{
				Home:           home,
				Addr:           settings.ListenAddr,
				Dev:            dev,
				APIKey:         settings.APIKey,
				DBDriver:       settings.DBDriver,
				DBURL:          settings.DBURL,
				MetricsHandler: metricsHandler,
				UseOtelHTTP:    metricsHandler != nil,
				Registry:       config.BuildRegistry(settings),
				MaxConcurrent:  settings.MaxConcurrent,
				CallTimeout:    settings.CallTimeout,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("workforce api listening", "addr", settings.ListenAddr)
				errCh <- app.Server.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := app.Server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from WORKFORCE_LISTEN_ADDR or :8090)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable permissive CORS for local frontend development")
	return cmd
}
