package bootstrap

import (
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/qrcode"
	"github.com/go-authgate/qrgate/internal/services"
	"github.com/go-authgate/qrgate/internal/store"

	"go.uber.org/zap"
)

// initializeServices creates all business services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	artifacts core.ArtifactStore,
	notifier core.Notifier,
	m core.Recorder,
	log *zap.Logger,
) (*services.IssuerService, *services.AccessService) {
	issuer := services.NewIssuerService(
		db,
		artifacts,
		qrcode.NewEncoder(cfg.QRSize),
		cfg,
		m,
		log.Named("issuer"),
	)
	access := services.NewAccessService(db, notifier, cfg, m, log.Named("access"))
	return issuer, access
}
