package query

import (
	"context"
	"time"

	"github.com/mxlvintam/cohortx/app/query/types"
	"github.com/mxlvintam/cohortx/pkg/db"
	"github.com/mxlvintam/cohortx/pkg/logging"
	"github.com/mxlvintam/cohortx/pkg/redis"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/mxlvintam/cohortx/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	reportsDb, reportsErr := db.NewReportsDB(ctx, logger, retry.DefaultConfig(), "query",
		utils.Env("REPORTS_DB", db.DefaultReportsDBName))
	if reportsErr != nil {
		logger.Fatal("Unable to initialize reports database", zap.Error(reportsErr))
	}

	// Initialize Redis client for response caching (optional)
	var redisClient *redis.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - report responses will not be cached",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for report response caching")
		}
	} else {
		logger.Info("Redis disabled - report responses will not be cached")
	}

	app := &types.App{
		ReportsDB:   reportsDb,
		RedisClient: redisClient,
		CacheTTL:    time.Duration(utils.EnvInt("CACHE_TTL", 60)) * time.Second,
		Logger:      logger,
	}

	return app
}
