package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"fmeca-service/api"
	"fmeca-service/logger"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the grid, charts and statistics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(a.cfg.Logging.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()
			return a.serve(cmd.Context(), log)
		},
	}
}

func (a *app) serve(ctx context.Context, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, sess, err := a.openSession(ctx, log)
	if err != nil {
		fatalIfUnavailable(log, err)
		return err
	}
	defer conn.Close()

	if a.cfg.Logging.Mode == "prod" || a.cfg.Logging.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := api.NewHandler(log, sess, a.cfg.Charts.ChartOptions())
	h.OnExit(stop)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewRouter(log, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", srv.Addr, "session_id", sess.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
