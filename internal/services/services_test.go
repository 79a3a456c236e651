package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-authgate/qrgate/internal/artifact"
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/metrics"
	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/notify"
	"github.com/go-authgate/qrgate/internal/qrcode"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testFileLink = "https://drive.example.com/file/d/42/view"

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:                "http://localhost:8080",
		OwnerEmail:             "owner@example.com",
		ApprovalWindow:         24 * time.Hour,
		ActionLinkTTL:          72 * time.Hour,
		RequireEmailOnRedirect: true,
		QRSize:                 128,
	}
}

type testEnv struct {
	cfg       *config.Config
	store     *store.Store
	artifacts *artifact.MemoryStore
	mail      *notify.LogSender
	issuer    *IssuerService
	access    *AccessService
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	s := setupTestStore(t)
	artifacts := artifact.NewMemoryStore()
	mail := notify.NewLogSender(nil)
	m := metrics.NewNoopMetrics()
	log := zap.NewNop()

	return &testEnv{
		cfg:       cfg,
		store:     s,
		artifacts: artifacts,
		mail:      mail,
		issuer:    NewIssuerService(s, artifacts, qrcode.NewEncoder(cfg.QRSize), cfg, m, log),
		access:    NewAccessService(s, mail, cfg, m, log),
	}
}

// withNotifier swaps the access service's notifier
func (e *testEnv) withNotifier(n core.Notifier) *AccessService {
	return NewAccessService(e.store, n, e.cfg, metrics.NewNoopMetrics(), zap.NewNop())
}

func (e *testEnv) issue(t *testing.T) *models.AccessRequest {
	t.Helper()
	issued, err := e.issuer.Issue(context.Background(), testFileLink)
	require.NoError(t, err)
	return issued.Request
}

func (e *testEnv) reload(t *testing.T, token string) *models.AccessRequest {
	t.Helper()
	req, err := e.store.GetRequestByToken(context.Background(), token)
	require.NoError(t, err)
	return req
}

var codePattern = regexp.MustCompile(`/process/approve/[0-9a-f-]+\?code=([0-9a-f]+)`)

// lastActionCode extracts the action code from the most recent owner email
func (e *testEnv) lastActionCode(t *testing.T) string {
	t.Helper()
	sent := e.mail.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != e.cfg.OwnerEmail {
			continue
		}
		m := codePattern.FindStringSubmatch(sent[i].HTMLBody)
		require.Len(t, m, 2, "owner email carries no action code: %s", sent[i].HTMLBody)
		return m[1]
	}
	t.Fatal("no owner email sent")
	return ""
}

// pendingRequest issues a token and submits an email for it
func (e *testEnv) pendingRequest(t *testing.T, email string) (*models.AccessRequest, string) {
	t.Helper()
	req := e.issue(t)
	_, err := e.access.Submit(context.Background(), req.Token, email)
	require.NoError(t, err)
	return e.reload(t, req.Token), e.lastActionCode(t)
}

// approvedRequest runs the full issue, submit and approve flow
func (e *testEnv) approvedRequest(t *testing.T, email string) *models.AccessRequest {
	t.Helper()
	req, code := e.pendingRequest(t, email)
	_, err := e.access.Decide(context.Background(), "approve", req.Token, code)
	require.NoError(t, err)
	return e.reload(t, req.Token)
}

// backdateApproval moves approved_at into the past
func (e *testEnv) backdateApproval(t *testing.T, token string, ago time.Duration) {
	t.Helper()
	require.NoError(t, e.store.ApplyTransition(context.Background(), store.Transition{
		Token: token,
		From:  []models.Status{models.StatusApproved},
		Set:   map[string]any{"approved_at": time.Now().Add(-ago)},
	}))
}

type failingNotifier struct{}

func (failingNotifier) Send(ctx context.Context, msg core.Message) error {
	return errors.New("dial tcp smtp.gmail.com:465: connection refused")
}

type failingArtifacts struct {
	*artifact.MemoryStore
}

func (failingArtifacts) Put(ctx context.Context, key string, data []byte) error {
	return artifact.ErrUnavailable
}

func isOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
