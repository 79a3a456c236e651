package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/qrgate/internal/artifact"
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/metrics"
	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/notify"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var csrfFieldRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:             ":0",
		BaseURL:                "http://localhost:8080",
		SessionSecret:          "test-session-secret",
		SessionMaxAge:          3600,
		DatabaseDriver:         "sqlite",
		DatabaseDSN:            ":memory:",
		OwnerEmail:             "owner@example.com",
		MailDriver:             config.MailDriverLog,
		ApprovalWindow:         24 * time.Hour,
		ActionLinkTTL:          time.Hour,
		RequireEmailOnRedirect: true,
		QRSize:                 128,
		ArtifactStore:          config.ArtifactStoreMemory,
		OperatorToken:          "operator-secret",
	}
}

type testServer struct {
	router *gin.Engine
	db     *store.Store
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db, err := initializeDatabase(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	artifacts := artifact.NewMemoryStore()
	m := metrics.NewNoopMetrics()
	issuer, access := initializeServices(cfg, db, artifacts, notify.NewLogSender(log), m, log)
	h := initializeHandlers(issuer, access, log)

	return &testServer{
		router: setupRouter(cfg, db, artifacts, h, m, log),
		db:     db,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// csrf loads a page and returns its CSRF token plus the session cookies
func (s *testServer) csrf(t *testing.T, path string) (string, []*http.Cookie) {
	t.Helper()
	w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	match := csrfFieldRe.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2, "page should embed a CSRF token")
	return match[1], w.Result().Cookies()
}

func (s *testServer) postForm(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(req)
}

func TestInitializeMetrics(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cfg := &config.Config{MetricsEnabled: enabled}
		m := initializeMetrics(cfg)
		require.NotNil(t, m)
	}
}

func TestInitializeArtifactStore(t *testing.T) {
	ctx := context.Background()

	s, err := initializeArtifactStore(ctx, &config.Config{ArtifactStore: config.ArtifactStoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &artifact.MemoryStore{}, s)

	dir := t.TempDir()
	s, err = initializeArtifactStore(ctx, &config.Config{
		ArtifactStore: config.ArtifactStoreLocal,
		ArtifactDir:   dir,
	})
	require.NoError(t, err)
	assert.IsType(t, &artifact.LocalStore{}, s)
}

func TestInitializeNotifier(t *testing.T) {
	log := zap.NewNop()

	n := initializeNotifier(&config.Config{MailDriver: config.MailDriverLog}, log)
	assert.IsType(t, &notify.LogSender{}, n)

	smtpCfg := &config.Config{
		MailDriver: config.MailDriverSMTP,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		MailFrom:   "owner@example.com",
	}
	n = initializeNotifier(smtpCfg, log)
	assert.IsType(t, &notify.SMTPSender{}, n)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(&config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = NewLogger(&config.Config{LogLevel: "bogus", IsProduction: true})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	require.NoError(t, s.db.Close())
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"disconnected"`)
}

func TestGenerateRequiresCSRF(t *testing.T) {
	s := newTestServer(t, testConfig())
	form := url.Values{"file_link": {"https://files.example.com/report.pdf"}}

	w := s.postForm("/generate", form, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	token, cookies := s.csrf(t, "/generate")
	form.Set("csrf_token", token)
	w = s.postForm("/generate", form, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	reqs, page, err := s.db.ListRequests(context.Background(), store.NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, models.StatusNew, reqs[0].Status)
}

func TestSubmitThroughRouter(t *testing.T) {
	s := newTestServer(t, testConfig())

	r := &models.AccessRequest{
		Token:    "router-token",
		FileLink: "https://files.example.com/a.pdf",
		Status:   models.StatusNew,
	}
	require.NoError(t, s.db.CreateRequest(context.Background(), r))

	token, cookies := s.csrf(t, "/request/router-token")
	w := s.postForm("/request/router-token", url.Values{
		"csrf_token": {token},
		"gmail":      {"visitor@example.com"},
	}, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := s.db.GetRequestByToken(context.Background(), "router-token")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "visitor@example.com", got.RequesterEmail)
}

func TestProcessSkipsCSRF(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(httptest.NewRequest(http.MethodGet, "/process/approve/unknown?code=x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Invalid or expired token.", w.Body.String())
}

func TestOperatorListing(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(httptest.NewRequest(http.MethodGet, "/debug/requests", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/requests", nil)
	req.Header.Set("Authorization", "Bearer operator-secret")
	w = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pagination"`)

	cfg := testConfig()
	cfg.OperatorToken = ""
	s = newTestServer(t, cfg)
	req = httptest.NewRequest(http.MethodGet, "/debug/requests", nil)
	req.Header.Set("Authorization", "Bearer operator-secret")
	w = s.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	s := newTestServer(t, cfg)
	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	cfg = testConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsToken = "metrics-secret"
	s = newTestServer(t, cfg)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer metrics-secret")
	w = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type recordingRecorder struct {
	metrics.NoopMetrics
	counts   map[string]int64
	dbErrors []string
}

func (r *recordingRecorder) SetRequestsByStatus(counts map[string]int64) { r.counts = counts }

func (r *recordingRecorder) RecordDatabaseQueryError(op string) {
	r.dbErrors = append(r.dbErrors, op)
}

func TestUpdateRequestGauges(t *testing.T) {
	ctx := context.Background()
	db, err := store.New(ctx, "sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.CreateRequest(ctx, &models.AccessRequest{
		Token:    "gauge-token",
		FileLink: "https://files.example.com/a.pdf",
		Status:   models.StatusNew,
	}))

	rec := &recordingRecorder{}
	errLog := newErrorLogger(zap.NewNop(), time.Minute)
	updateRequestGauges(ctx, db, rec, errLog)
	assert.Equal(t, int64(1), rec.counts[string(models.StatusNew)])
	assert.Equal(t, int64(0), rec.counts[string(models.StatusApproved)])

	require.NoError(t, db.Close())
	updateRequestGauges(ctx, db, rec, errLog)
	assert.Equal(t, []string{"count_by_status"}, rec.dbErrors)
}
