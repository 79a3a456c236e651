package bootstrap

import (
	"github.com/go-authgate/qrgate/internal/handlers"
	"github.com/go-authgate/qrgate/internal/services"

	"go.uber.org/zap"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	generate *handlers.GenerateHandler
	request  *handlers.RequestHandler
	process  *handlers.ProcessHandler
	debug    *handlers.DebugHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	issuer *services.IssuerService,
	access *services.AccessService,
	log *zap.Logger,
) handlerSet {
	log = log.Named("http")
	return handlerSet{
		generate: handlers.NewGenerateHandler(issuer, log),
		request:  handlers.NewRequestHandler(access, log),
		process:  handlers.NewProcessHandler(access, log),
		debug:    handlers.NewDebugHandler(access, log),
	}
}
