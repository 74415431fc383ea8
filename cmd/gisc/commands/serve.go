package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/adapters/http/api"
	"github.com/okian/gisc/internal/adapters/http/swagger"
	"github.com/okian/gisc/internal/app"
	"github.com/okian/gisc/pkg/logger"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand(o *options) *cobra.Command {
	var (
		flags   analysisFlags
		addr    string
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest analysis over HTTP",
		Long: `Runs the analysis once, then serves the report, influencer ranks, verdicts
and genuineness results read-only over HTTP. With --refresh the analysis
is repeated on that interval; overlapping runs are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := o.cfg
			flags.apply(cmd, cfg)
			setIfChanged(cmd.Flags(), "addr", &cfg.Serve.Addr, addr)
			setIfChanged(cmd.Flags(), "refresh", &cfg.Serve.RefreshInterval, refresh)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logger.Named("serve")

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			opts, err := serviceOptions(cfg)
			if err != nil {
				return err
			}
			svc, err := app.New(cfg, store, opts...)
			if err != nil {
				return err
			}
			// endpoints answer 503 until a run succeeds
			if _, err := svc.Run(ctx); err != nil {
				log.Error(ctx, "initial analysis failed", logger.Error(err))
			}
			if cfg.Serve.RefreshInterval > 0 {
				stopRefresh := svc.StartRefresh(ctx, cfg.Serve.RefreshInterval)
				defer stopRefresh()
			}

			mux := http.NewServeMux()
			swagger.Register(mux)
			api.NewServer(svc, cfg.Serve.MaxLimit).Register(mux)

			srv := &http.Server{
				Addr:              cfg.Serve.Addr,
				Handler:           mux,
				ReadTimeout:       readTimeout,
				WriteTimeout:      writeTimeout,
				IdleTimeout:       idleTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
			}

			errc := make(chan error, 1)
			go func() {
				log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Serve.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			log.Info(ctx, "shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "server shutdown failed", logger.Error(err))
				return err
			}
			log.Info(ctx, "server stopped")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().DurationVar(&refresh, "refresh", 0, "re-run the analysis on this interval; 0 disables")
	return cmd
}
