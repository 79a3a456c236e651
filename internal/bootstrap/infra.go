package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/qrgate/internal/artifact"
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/metrics"
	"github.com/go-authgate/qrgate/internal/notify"

	"go.uber.org/zap"
)

const redisKeyPrefix = "qrgate:"

// initializeArtifactStore selects the QR image backend
func initializeArtifactStore(ctx context.Context, cfg *config.Config) (core.ArtifactStore, error) {
	switch cfg.ArtifactStore {
	case config.ArtifactStoreMemory:
		return artifact.NewMemoryStore(), nil
	case config.ArtifactStoreRedis:
		s, err := artifact.NewRueidisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis artifact store: %w", err)
		}
		return s, nil
	default:
		s, err := artifact.NewLocalStore(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// initializeNotifier selects the mail driver
func initializeNotifier(cfg *config.Config, log *zap.Logger) core.Notifier {
	if cfg.MailDriver == config.MailDriverLog {
		log.Warn("MAIL_DRIVER=log: emails are written to the log and not delivered")
		return notify.NewLogSender(log.Named("mail"))
	}
	return notify.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
		cfg.MailFrom,
		log.Named("mail"),
	)
}

// initializeMetrics initializes Prometheus metrics or a no-op recorder
func initializeMetrics(cfg *config.Config) core.Recorder {
	return metrics.Init(cfg.MetricsEnabled)
}
