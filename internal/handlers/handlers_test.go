package handlers

import (
	"context"
	"encoding/json"
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
	"github.com/go-authgate/qrgate/internal/qrcode"
	"github.com/go-authgate/qrgate/internal/services"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testFileLink = "https://drive.example.com/file/d/42/view"

type testApp struct {
	router *gin.Engine
	store  *store.Store
	mail   *notify.LogSender
	issuer *services.IssuerService
	access *services.AccessService
}

func setupTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		BaseURL:                "http://localhost:8080",
		OwnerEmail:             "owner@example.com",
		ApprovalWindow:         24 * time.Hour,
		ActionLinkTTL:          time.Hour,
		RequireEmailOnRedirect: true,
		QRSize:                 128,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	s, err := store.New(context.Background(), "sqlite", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mail := notify.NewLogSender(nil)
	m := metrics.NewNoopMetrics()
	log := zap.NewNop()
	issuer := services.NewIssuerService(s, artifact.NewMemoryStore(), qrcode.NewEncoder(cfg.QRSize), cfg, m, log)
	access := services.NewAccessService(s, mail, cfg, m, log)

	generate := NewGenerateHandler(issuer, log)
	request := NewRequestHandler(access, log)
	process := NewProcessHandler(access, log)
	debug := NewDebugHandler(access, log)

	r := gin.New()
	r.GET("/generate", generate.ShowGeneratePage)
	r.POST("/generate", generate.Generate)
	r.GET("/qr/:token", generate.DownloadQR)
	r.GET("/", request.ShowIndex)
	r.POST("/", request.SubmitIndex)
	r.GET("/request/:token", request.ShowRequest)
	r.POST("/request/:token", request.SubmitRequest)
	r.POST("/request/:token/reopen", request.Reopen)
	r.GET("/process/:action/:token", process.Process)
	r.GET("/debug/requests", debug.ListRequests)

	return &testApp{router: r, store: s, mail: mail, issuer: issuer, access: access}
}

func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) issue(t *testing.T) string {
	t.Helper()
	issued, err := a.issuer.Issue(context.Background(), testFileLink)
	require.NoError(t, err)
	return issued.Request.Token
}

var linkPattern = regexp.MustCompile(`href="http://localhost:8080(/process/approve/[^"]+)"`)

// approveLink returns the path of the approve link from the latest owner email
func (a *testApp) approveLink(t *testing.T) string {
	t.Helper()
	sent := a.mail.Sent()
	require.NotEmpty(t, sent)
	m := linkPattern.FindStringSubmatch(sent[len(sent)-1].HTMLBody)
	require.Len(t, m, 2)
	return m[1]
}

func (a *testApp) status(t *testing.T, token string) models.Status {
	t.Helper()
	req, err := a.store.GetRequestByToken(context.Background(), token)
	require.NoError(t, err)
	return req.Status
}

func TestUnknownTokenResponses(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(http.MethodGet, "/request/does-not-exist", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, invalidTokenText, w.Body.String())

	w = app.do(http.MethodPost, "/request/does-not-exist", url.Values{"gmail": {"alice@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, invalidTokenText, w.Body.String())

	w = app.do(http.MethodGet, "/process/approve/does-not-exist?code=abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, invalidTokenText, w.Body.String())

	w = app.do(http.MethodGet, "/qr/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerate(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(http.MethodGet, "/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="file_link"`)

	w = app.do(http.MethodPost, "/generate", url.Values{"file_link": {testFileLink}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="qr-[0-9a-f-]{36}\.png"$`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))

	rows, _, err := app.access.List(context.Background(), 1, 10, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusNew, rows[0].Status)

	// The stored image can be downloaded again
	w = app.do(http.MethodGet, "/qr/"+rows[0].Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestGenerate_InvalidLink(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(http.MethodPost, "/generate", url.Values{"file_link": {"javascript:alert(1)"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "absolute http or https URL")
}

func TestRequestLifecycle(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)

	// New token renders the form
	w := app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/request/`+token+`"`)

	// Invalid email re-renders the form
	w = app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email address is not valid")

	// Submission notifies the owner
	w = app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Request Sent")
	assert.Equal(t, models.StatusPending, app.status(t, token))
	require.Len(t, app.mail.Sent(), 1)

	// Owner approves
	w = app.do(http.MethodGet, app.approveLink(t), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User has been approved.", w.Body.String())
	assert.Equal(t, models.StatusApproved, app.status(t, token))

	// Reusing the link is rejected
	w = app.do(http.MethodGet, app.approveLink(t), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Approved visitor confirms the email and is redirected
	w = app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Confirm Your Email")

	w = app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"Alice@Example.com"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testFileLink, w.Header().Get("Location"))

	// Someone else gets the form back and nothing changes
	w = app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"mallory@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not match")
	assert.Equal(t, models.StatusApproved, app.status(t, token))
}

func TestRequest_RedirectWithoutEmail(t *testing.T) {
	app := setupTestApp(t, func(c *config.Config) { c.RequireEmailOnRedirect = false })
	token := app.issue(t)

	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	app.do(http.MethodGet, app.approveLink(t), nil)

	w := app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testFileLink, w.Header().Get("Location"))
}

func TestProcess_Deny(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)

	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	denyLink := strings.Replace(app.approveLink(t), "/process/approve/", "/process/deny/", 1)

	w := app.do(http.MethodGet, denyLink, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User has been denied.", w.Body.String())

	w = app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), deniedText)

	w = app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	assert.Contains(t, w.Body.String(), deniedText)
	assert.Equal(t, models.StatusDenied, app.status(t, token))
}

func TestProcess_Errors(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)
	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})

	w := app.do(http.MethodGet, "/process/delete/"+token+"?code=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/process/approve/"+token+"?code=forged", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodGet, "/process/approve/"+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, models.StatusPending, app.status(t, token))
}

func TestReopenAfterExpiry(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)
	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	app.do(http.MethodGet, app.approveLink(t), nil)

	require.NoError(t, app.store.ApplyTransition(context.Background(), store.Transition{
		Token: token,
		From:  []models.Status{models.StatusApproved},
		Set:   map[string]any{"approved_at": time.Now().Add(-48 * time.Hour)},
	}))

	w := app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/request/`+token+`/reopen"`)

	w = app.do(http.MethodPost, "/request/"+token+"/reopen", url.Values{"gmail": {"alice@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusPending, app.status(t, token))

	// A second reopen conflicts with the pending state
	w = app.do(http.MethodPost, "/request/"+token+"/reopen", url.Values{"gmail": {"alice@example.com"}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExpiredApprovalHidesRequesterEmail(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)
	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice.secret@example.com"}})
	app.do(http.MethodGet, app.approveLink(t), nil)

	require.NoError(t, app.store.ApplyTransition(context.Background(), store.Transition{
		Token: token,
		From:  []models.Status{models.StatusApproved},
		Set:   map[string]any{"approved_at": time.Now().Add(-48 * time.Hour)},
	}))

	w := app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/request/`+token+`/reopen"`)
	assert.NotContains(t, w.Body.String(), "alice.secret")

	// Verify mode does not reveal it either
	require.NoError(t, app.store.ApplyTransition(context.Background(), store.Transition{
		Token: token,
		From:  []models.Status{models.StatusApproved},
		Set:   map[string]any{"approved_at": time.Now()},
	}))
	w = app.do(http.MethodGet, "/request/"+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "alice.secret")
}

func TestReopen_LiveApprovalRejectsStranger(t *testing.T) {
	app := setupTestApp(t)
	token := app.issue(t)
	app.do(http.MethodPost, "/request/"+token, url.Values{"gmail": {"alice@example.com"}})
	app.do(http.MethodGet, app.approveLink(t), nil)

	w := app.do(http.MethodPost, "/request/"+token+"/reopen", url.Values{"gmail": {"mallory@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.StatusApproved, app.status(t, token))
}

func TestIndex(t *testing.T) {
	t.Run("TokenQueryRedirects", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(http.MethodGet, "/?token=abc-123", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/request/abc-123", w.Header().Get("Location"))
	})

	t.Run("ShowsForm", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `action="/"`)
	})

	t.Run("Disabled", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(http.MethodPost, "/", url.Values{"gmail": {"alice@example.com"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("SubmitAndAlreadyApproved", func(t *testing.T) {
		app := setupTestApp(t, func(c *config.Config) { c.DefaultFileLink = testFileLink })

		w := app.do(http.MethodPost, "/", url.Values{"gmail": {"alice@example.com"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Request Sent")

		w = app.do(http.MethodGet, app.approveLink(t), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = app.do(http.MethodPost, "/", url.Values{"gmail": {"alice@example.com"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Already Approved")
	})

	t.Run("PostWithToken", func(t *testing.T) {
		app := setupTestApp(t)
		token := app.issue(t)
		w := app.do(http.MethodPost, "/?token="+token, url.Values{"gmail": {"alice@example.com"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.StatusPending, app.status(t, token))
	})
}

func TestDebugListRequests(t *testing.T) {
	app := setupTestApp(t)
	for i := 0; i < 3; i++ {
		app.issue(t)
	}

	w := app.do(http.MethodGet, "/debug/requests?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Requests   []map[string]any       `json:"requests"`
		Pagination store.PaginationResult `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Requests, 2)
	assert.Equal(t, int64(3), body.Pagination.Total)
	assert.True(t, body.Pagination.HasNext)
	assert.Contains(t, body.Requests[0], "token")
	assert.Contains(t, body.Requests[0], "status")
	assert.NotContains(t, body.Requests[0], "ActionCodeHash")

	w = app.do(http.MethodGet, "/debug/requests?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
