package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/store"

	"go.uber.org/zap"
)

const dbInitTimeout = 30 * time.Second

// initializeDatabase creates and initializes the database connection
func initializeDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, dbInitTimeout)
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("database ready", zap.String("driver", cfg.DatabaseDriver))
	return db, nil
}
