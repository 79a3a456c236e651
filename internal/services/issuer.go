package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/qrgate/internal/artifact"
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/qrcode"
	"github.com/go-authgate/qrgate/internal/store"
	"github.com/go-authgate/qrgate/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Issued is the result of a successful issuance
type Issued struct {
	Request    *models.AccessRequest
	RequestURL string
	PNG        []byte
	FileName   string
}

type IssuerService struct {
	store     *store.Store
	artifacts core.ArtifactStore
	encoder   *qrcode.Encoder
	config    *config.Config
	metrics   core.Recorder
	log       *zap.Logger
}

func NewIssuerService(
	s *store.Store,
	artifacts core.ArtifactStore,
	encoder *qrcode.Encoder,
	cfg *config.Config,
	m core.Recorder,
	log *zap.Logger,
) *IssuerService {
	return &IssuerService{
		store:     s,
		artifacts: artifacts,
		encoder:   encoder,
		config:    cfg,
		metrics:   m,
		log:       log,
	}
}

// RequestURL is the address encoded into a token's QR code
func (s *IssuerService) RequestURL(token string) string {
	return util.JoinURL(s.config.BaseURL, "/request/"+token)
}

// Issue mints a token for fileLink, stores a new request row and its QR image.
// The PNG is encoded before the row is written so a failed encode leaves nothing behind.
func (s *IssuerService) Issue(ctx context.Context, fileLink string) (*Issued, error) {
	start := time.Now()

	fileLink = strings.TrimSpace(fileLink)
	if err := util.ValidateHTTPURL(fileLink); err != nil {
		return nil, ErrInvalidFileLink
	}

	token := uuid.NewString()
	requestURL := s.RequestURL(token)
	png, err := s.encoder.EncodePNG(requestURL)
	if err != nil {
		s.metrics.RecordIssued(false, time.Since(start))
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	req := &models.AccessRequest{
		Token:    token,
		FileLink: fileLink,
		Status:   models.StatusNew,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		s.metrics.RecordIssued(false, time.Since(start))
		s.metrics.RecordDatabaseQueryError("create_request")
		return nil, err
	}

	if err := s.artifacts.Put(ctx, artifact.QRKey(token), png); err != nil {
		s.metrics.RecordIssued(false, time.Since(start))
		s.log.Error("failed to store QR artifact",
			zap.String("token", token),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}

	s.metrics.RecordIssued(true, time.Since(start))
	s.log.Info("access token issued",
		zap.String("token", token),
		zap.String("client_ip", util.GetIPFromContext(ctx)),
	)

	return &Issued{
		Request:    req,
		RequestURL: requestURL,
		PNG:        png,
		FileName:   "qr-" + token + ".png",
	}, nil
}

// Artifact returns the stored QR image of token, regenerating it when missing
func (s *IssuerService) Artifact(ctx context.Context, token string) ([]byte, error) {
	req, err := s.store.GetRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	key := artifact.QRKey(req.Token)
	png, err := s.artifacts.Get(ctx, key)
	if err == nil {
		return png, nil
	}
	if !errors.Is(err, artifact.ErrNotFound) {
		s.log.Warn("QR artifact read failed, regenerating",
			zap.String("token", token),
			zap.Error(err),
		)
	}

	png, err = s.encoder.EncodePNG(s.RequestURL(req.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	if err := s.artifacts.Put(ctx, key, png); err != nil {
		s.log.Warn("failed to store regenerated QR artifact",
			zap.String("token", token),
			zap.Error(err),
		)
	}
	return png, nil
}
