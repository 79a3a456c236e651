package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-authgate/qrgate/internal/artifact"
	"github.com/go-authgate/qrgate/internal/metrics"
	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/qrcode"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIssue_CreatesNewRowAndArtifact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issued, err := env.issuer.Issue(ctx, "  "+testFileLink+" ")
	require.NoError(t, err)

	_, err = uuid.Parse(issued.Request.Token)
	require.NoError(t, err, "token should be a UUID")
	assert.Equal(t, "qr-"+issued.Request.Token+".png", issued.FileName)
	assert.True(t, bytes.HasPrefix(issued.PNG, []byte("\x89PNG")))

	row := env.reload(t, issued.Request.Token)
	assert.Equal(t, models.StatusNew, row.Status)
	assert.Equal(t, testFileLink, row.FileLink)
	assert.Empty(t, row.RequesterEmail)
	assert.Nil(t, row.ApprovedAt)

	stored, err := env.artifacts.Get(ctx, artifact.QRKey(issued.Request.Token))
	require.NoError(t, err)
	assert.Equal(t, issued.PNG, stored)

	_, page, err := env.store.ListRequests(ctx, store.NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestIssue_UniqueTokens(t *testing.T) {
	env := newTestEnv(t)
	a := env.issue(t)
	b := env.issue(t)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestIssue_InvalidFileLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, link := range []string{"", "not a url", "ftp://x.example.com/f", "javascript:alert(1)", "/relative"} {
		_, err := env.issuer.Issue(ctx, link)
		assert.ErrorIs(t, err, ErrInvalidFileLink, link)
		assert.True(t, IsValidationError(err))
	}

	counts, err := env.store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[models.StatusNew])
	assert.Equal(t, 0, env.artifacts.Len())
}

func TestIssue_ArtifactFailureKeepsRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issuer := NewIssuerService(
		env.store,
		failingArtifacts{artifact.NewMemoryStore()},
		qrcode.NewEncoder(128),
		env.cfg,
		metrics.NewNoopMetrics(),
		zap.NewNop(),
	)

	_, err := issuer.Issue(ctx, testFileLink)
	require.ErrorIs(t, err, ErrArtifactUnavailable)

	counts, err := env.store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.StatusNew])
}

func TestArtifact_RegeneratesMissingImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.issue(t)

	// Lose every stored image
	require.NoError(t, env.artifacts.Close())

	png, err := env.issuer.Artifact(ctx, req.Token)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	stored, err := env.artifacts.Get(ctx, artifact.QRKey(req.Token))
	require.NoError(t, err)
	assert.Equal(t, png, stored)
}

func TestArtifact_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.issuer.Artifact(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestURL(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "http://localhost:8080/request/abc", env.issuer.RequestURL("abc"))
}
