package types

import (
	"context"
	"net/http"
	"time"

	"github.com/mxlvintam/cohortx/pkg/db"
	"github.com/mxlvintam/cohortx/pkg/redis"
	"go.uber.org/zap"
)

type App struct {
	ReportsDB db.ReportsStore
	// RedisClient caches report responses; nil when REDIS_ENABLED is off.
	RedisClient *redis.Client
	// CacheTTL bounds how stale a cached report response may get.
	CacheTTL time.Duration
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.ReportsDB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
