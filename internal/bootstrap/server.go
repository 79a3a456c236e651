package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/appleboy/graceful"
	"go.uber.org/zap"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second, // covers a blocking SMTP round trip
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("failed to start server", zap.Error(err))
				os.Exit(1)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		log.Info("server exited")
		return nil
	})
}

// addArtifactStoreShutdownJob closes the artifact backend on shutdown
func addArtifactStoreShutdownJob(m *graceful.Manager, artifacts core.ArtifactStore, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		if err := artifacts.Close(); err != nil {
			log.Error("error closing artifact store", zap.Error(err))
			return err
		}
		return nil
	})
}

// addDatabaseShutdownJob closes the database pool on shutdown
func addDatabaseShutdownJob(m *graceful.Manager, db *store.Store, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
			return err
		}
		log.Info("database connection closed")
		return nil
	})
}

// addMetricsGaugeUpdateJob periodically refreshes the requests-by-status gauge
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder core.Recorder,
	log *zap.Logger,
) {
	if !cfg.MetricsEnabled || cfg.MetricsGaugeUpdateInterval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		errLog := newErrorLogger(log, time.Minute)
		updateRequestGauges(ctx, db, recorder, errLog)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				updateRequestGauges(ctx, db, recorder, errLog)
			}
		}
	})
}

// updateRequestGauges pushes the current status counts into the recorder
func updateRequestGauges(ctx context.Context, db *store.Store, recorder core.Recorder, errLog *errorLogger) {
	counts, err := db.CountByStatus(ctx)
	if err != nil {
		recorder.RecordDatabaseQueryError("count_by_status")
		errLog.logIfNeeded("count_by_status", err)
		return
	}

	byStatus := make(map[string]int64, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	recorder.SetRequestsByStatus(byStatus)
}

// errorLogger rate limits repeated errors from periodic jobs
type errorLogger struct {
	log      *zap.Logger
	interval time.Duration
	last     map[string]time.Time
}

func newErrorLogger(log *zap.Logger, interval time.Duration) *errorLogger {
	return &errorLogger{log: log, interval: interval, last: make(map[string]time.Time)}
}

func (e *errorLogger) logIfNeeded(op string, err error) {
	now := time.Now()
	if t, ok := e.last[op]; ok && now.Sub(t) < e.interval {
		return
	}
	e.last[op] = now
	e.log.Error("metrics gauge update failed", zap.String("operation", op), zap.Error(err))
}
