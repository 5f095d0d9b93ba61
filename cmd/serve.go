package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/api"
	"github.com/sells-group/tec-dashboard/internal/config"
	"github.com/sells-group/tec-dashboard/internal/session"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv, mgr := newServer(cfg, port)
		go mgr.Run(ctx, sweepInterval)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServer wires the session manager and API router for c.
func newServer(c *config.Config, port int) (*http.Server, *session.Manager) {
	mgr := session.NewManager(newLoader(c), c.Source.Params(), c.Session.IdleTimeout())
	srv := &http.Server{
		Addr:              config.ServerConfig{Port: port}.Address(),
		Handler:           api.NewRouter(mgr, c.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, mgr
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
