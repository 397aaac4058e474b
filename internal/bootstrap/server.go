package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mastant/fieldsync/api"
	"github.com/mastant/fieldsync/config"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
)

// Run serves the local bridge API and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, svc lifecycle.UseCase) error {
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(svc lifecycle.UseCase) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bookings := router.Group("/bookings")
	api.NewBookingHandler(svc).Register(bookings)
	api.NewQrHandler(svc).Register(bookings)

	return router
}
