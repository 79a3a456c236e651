package bootstrap

import (
	"context"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/services"

	"go.uber.org/zap"
)

// IssueOnce mints a single QR token outside the HTTP server, for the CLI.
func IssueOnce(ctx context.Context, cfg *config.Config, log *zap.Logger, fileLink string) (*services.Issued, error) {
	db, err := initializeDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	artifacts, err := initializeArtifactStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = artifacts.Close() }()

	issuer, _ := initializeServices(
		cfg,
		db,
		artifacts,
		initializeNotifier(cfg, log),
		initializeMetrics(cfg),
		log,
	)
	return issuer.Issue(ctx, fileLink)
}
