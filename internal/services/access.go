package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/store"
	"github.com/go-authgate/qrgate/internal/templates"
	"github.com/go-authgate/qrgate/internal/util"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// ViewKind is what the visitor page should show for a token
type ViewKind string

const (
	ViewForm     ViewKind = "form"     // new or pending: ask for an email
	ViewDenied   ViewKind = "denied"   // terminal denial message
	ViewVerify   ViewKind = "verify"   // approved: confirm the email before redirecting
	ViewRedirect ViewKind = "redirect" // approved: go straight to the file
	ViewExpired  ViewKind = "expired"  // approved but outside the approval window
)

// View is the resolved visitor view of a request
type View struct {
	Kind    ViewKind
	Request *models.AccessRequest
}

// Outcome is the result of a visitor submission
type Outcome string

const (
	OutcomePending         Outcome = "pending"          // owner has been asked
	OutcomeRedirect        Outcome = "redirect"         // go to FileLink
	OutcomeAlreadyApproved Outcome = "already_approved" // tokenless visitor already has access
)

// SubmitResult describes what happened after a visitor submitted an email
type SubmitResult struct {
	Outcome  Outcome
	Token    string
	FileLink string
}

// Action is an owner decision
type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

// ParseAction validates an action path segment
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionDeny:
		return Action(s), nil
	}
	return "", ErrUnknownAction
}

// Decision is the result of an owner approve/deny
type Decision struct {
	Action  Action
	Request *models.AccessRequest
	Message string
}

type AccessService struct {
	store    *store.Store
	notifier core.Notifier
	config   *config.Config
	metrics  core.Recorder
	log      *zap.Logger
}

func NewAccessService(
	s *store.Store,
	notifier core.Notifier,
	cfg *config.Config,
	m core.Recorder,
	log *zap.Logger,
) *AccessService {
	return &AccessService{
		store:    s,
		notifier: notifier,
		config:   cfg,
		metrics:  m,
		log:      log,
	}
}

func (s *AccessService) getRequest(ctx context.Context, token string) (*models.AccessRequest, error) {
	req, err := s.store.GetRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_request")
		return nil, err
	}
	return req, nil
}

// View resolves what a visitor opening the token URL should see
func (s *AccessService) View(ctx context.Context, token string) (*View, error) {
	req, err := s.getRequest(ctx, token)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.StatusNew, models.StatusPending:
		return &View{Kind: ViewForm, Request: req}, nil
	case models.StatusDenied:
		return &View{Kind: ViewDenied, Request: req}, nil
	case models.StatusApproved:
		if req.ApprovalExpired(s.config.ApprovalWindow, time.Now()) {
			s.metrics.RecordRedirect("expired")
			return &View{Kind: ViewExpired, Request: req}, nil
		}
		if s.config.RequireEmailOnRedirect {
			return &View{Kind: ViewVerify, Request: req}, nil
		}
		s.metrics.RecordRedirect(resultSuccess)
		return &View{Kind: ViewRedirect, Request: req}, nil
	}
	return nil, fmt.Errorf("access request %s has unknown status %q", req.Token, req.Status)
}

func validateEmail(raw string) (string, error) {
	email := util.NormalizeEmail(raw)
	if email == "" {
		return "", ErrEmailRequired
	}
	if !util.IsValidEmail(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Submit records a visitor's email for token and asks the owner for a decision.
// An approved visitor submitting the matching email is sent to the file instead.
func (s *AccessService) Submit(ctx context.Context, token, rawEmail string) (*SubmitResult, error) {
	email, err := validateEmail(rawEmail)
	if err != nil {
		s.metrics.RecordSubmission("invalid")
		return nil, err
	}

	req, err := s.getRequest(ctx, token)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.StatusApproved:
		if !util.EmailsEqual(req.RequesterEmail, email) {
			s.metrics.RecordSubmission("mismatch")
			s.log.Warn("email does not match approved request",
				zap.String("token", token),
				zap.String("client_ip", util.GetIPFromContext(ctx)),
			)
			return nil, ErrEmailMismatch
		}
		if req.ApprovalExpired(s.config.ApprovalWindow, time.Now()) {
			s.metrics.RecordSubmission("expired")
			s.metrics.RecordRedirect("expired")
			return nil, ErrApprovalExpired
		}
		s.metrics.RecordSubmission("redirect")
		s.metrics.RecordRedirect(resultSuccess)
		return &SubmitResult{Outcome: OutcomeRedirect, Token: req.Token, FileLink: req.FileLink}, nil

	case models.StatusDenied:
		s.metrics.RecordSubmission("denied")
		return nil, ErrRequestDenied

	case models.StatusNew, models.StatusPending:
		from := []models.Status{models.StatusNew, models.StatusPending}
		if err := s.requestApproval(ctx, req, email, from); err != nil {
			return nil, err
		}
		return &SubmitResult{Outcome: OutcomePending, Token: req.Token, FileLink: req.FileLink}, nil
	}

	return nil, fmt.Errorf("access request %s has unknown status %q", req.Token, req.Status)
}

// Reopen moves an approved request back to pending. A live approval can only be
// reopened by its own requester; once the approval window has elapsed any valid
// email may ask again.
func (s *AccessService) Reopen(ctx context.Context, token, rawEmail string) (*SubmitResult, error) {
	email, err := validateEmail(rawEmail)
	if err != nil {
		s.metrics.RecordSubmission("invalid")
		return nil, err
	}

	req, err := s.getRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusApproved {
		s.metrics.RecordSubmission("conflict")
		return nil, ErrStatusConflict
	}
	if !req.ApprovalExpired(s.config.ApprovalWindow, time.Now()) &&
		!util.EmailsEqual(req.RequesterEmail, email) {
		s.metrics.RecordSubmission("mismatch")
		s.log.Warn("refused reopen of live approval",
			zap.String("token", token),
			zap.String("client_ip", util.GetIPFromContext(ctx)),
		)
		return nil, ErrEmailMismatch
	}

	if err := s.requestApproval(ctx, req, email, []models.Status{models.StatusApproved}); err != nil {
		return nil, err
	}
	return &SubmitResult{Outcome: OutcomePending, Token: req.Token, FileLink: req.FileLink}, nil
}

// SubmitNew handles a request without a QR token. It creates a pending request
// for the configured default file link unless the email already holds a live approval.
func (s *AccessService) SubmitNew(ctx context.Context, rawEmail string) (*SubmitResult, error) {
	if s.config.DefaultFileLink == "" {
		return nil, ErrTokenlessDisabled
	}

	email, err := validateEmail(rawEmail)
	if err != nil {
		s.metrics.RecordSubmission("invalid")
		return nil, err
	}

	approved, err := s.store.GetApprovedByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("get_approved_by_email")
		return nil, err
	}
	now := time.Now()
	for i := range approved {
		if !approved[i].ApprovalExpired(s.config.ApprovalWindow, now) {
			s.metrics.RecordSubmission("already_approved")
			return &SubmitResult{
				Outcome:  OutcomeAlreadyApproved,
				Token:    approved[i].Token,
				FileLink: approved[i].FileLink,
			}, nil
		}
	}

	token := uuid.NewString()
	code, hash, expiresAt, err := s.newActionCode(token)
	if err != nil {
		return nil, err
	}
	req := &models.AccessRequest{
		Token:           token,
		RequesterEmail:  email,
		FileLink:        s.config.DefaultFileLink,
		Status:          models.StatusPending,
		ActionCodeHash:  hash,
		ActionExpiresAt: &expiresAt,
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		s.metrics.RecordDatabaseQueryError("create_request")
		return nil, err
	}

	s.metrics.RecordSubmission(string(OutcomePending))
	if err := s.notifyOwner(ctx, req.Token, email, code); err != nil {
		return nil, err
	}
	return &SubmitResult{Outcome: OutcomePending, Token: req.Token, FileLink: req.FileLink}, nil
}

// newActionCode mints a single-use owner action code and its salted hash
func (s *AccessService) newActionCode(token string) (code, hash string, expiresAt time.Time, err error) {
	code, err = util.CryptoRandomString(32)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate action code: %w", err)
	}
	return code, util.HashToken(code, token), time.Now().Add(s.config.ActionLinkTTL), nil
}

// requestApproval moves req to pending for email with a fresh action code and
// notifies the owner. The state change is kept when delivery fails.
func (s *AccessService) requestApproval(
	ctx context.Context,
	req *models.AccessRequest,
	email string,
	from []models.Status,
) error {
	code, hash, expiresAt, err := s.newActionCode(req.Token)
	if err != nil {
		return err
	}

	err = s.store.ApplyTransition(ctx, store.Transition{
		Token: req.Token,
		From:  from,
		Set: map[string]any{
			"requester_email":   email,
			"status":            models.StatusPending,
			"approved_at":       nil,
			"action_code_hash":  hash,
			"action_expires_at": expiresAt,
		},
	})
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			s.metrics.RecordSubmission("conflict")
			return ErrStatusConflict
		}
		s.metrics.RecordSubmission(resultError)
		s.metrics.RecordDatabaseQueryError("transition")
		return err
	}

	s.metrics.RecordSubmission(string(OutcomePending))
	s.log.Info("access requested",
		zap.String("token", req.Token),
		zap.String("previous_status", string(req.Status)),
		zap.String("client_ip", util.GetIPFromContext(ctx)),
	)

	return s.notifyOwner(ctx, req.Token, email, code)
}

func (s *AccessService) actionURL(action Action, token, code string) string {
	return util.JoinURL(s.config.BaseURL, "/process/"+string(action)+"/"+token) +
		"?code=" + url.QueryEscape(code)
}

func (s *AccessService) notifyOwner(ctx context.Context, token, email, code string) error {
	return s.send(ctx, "owner", token, core.Message{
		To:      s.config.OwnerEmail,
		Subject: templates.SubjectAccessRequest,
	}, templates.OwnerRequestEmail(templates.OwnerRequestEmailProps{
		RequesterEmail: email,
		ApproveURL:     s.actionURL(ActionApprove, token, code),
		DenyURL:        s.actionURL(ActionDeny, token, code),
	}))
}

func (s *AccessService) send(
	ctx context.Context,
	kind, token string,
	msg core.Message,
	body templ.Component,
) error {
	html, err := templates.RenderString(ctx, body)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", kind, err)
	}
	msg.HTMLBody = html

	if err := s.notifier.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(kind, false)
		s.log.Error("failed to send notification",
			zap.String("kind", kind),
			zap.String("token", token),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	s.metrics.RecordNotification(kind, true)
	return nil
}

// Decide applies an owner decision carried by an emailed action link.
// Approve and deny share one single-use code, and a decision only applies to a
// pending request.
func (s *AccessService) Decide(ctx context.Context, rawAction, token, code string) (*Decision, error) {
	action, err := ParseAction(rawAction)
	if err != nil {
		s.metrics.RecordDecision("unknown", "invalid_action")
		return nil, err
	}

	req, err := s.getRequest(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if code == "" || req.ActionExpired(now) ||
		!util.ConstantTimeEqual(util.HashToken(code, req.Token), req.ActionCodeHash) {
		s.metrics.RecordDecision(string(action), "invalid_link")
		s.log.Warn("rejected action link",
			zap.String("action", string(action)),
			zap.String("token", token),
			zap.String("status", string(req.Status)),
			zap.String("client_ip", util.GetIPFromContext(ctx)),
		)
		return nil, ErrActionLinkInvalid
	}

	set := map[string]any{
		"action_code_hash":  "",
		"action_expires_at": nil,
	}
	var (
		next    models.Status
		subject string
		body    templ.Component
	)
	switch action {
	case ActionApprove:
		next = models.StatusApproved
		set["approved_at"] = now
		subject, body = templates.SubjectAccessApproved, templates.ApprovedEmail()
	case ActionDeny:
		next = models.StatusDenied
		subject, body = templates.SubjectAccessDenied, templates.DeniedEmail()
	}
	set["status"] = next

	err = s.store.ApplyTransition(ctx, store.Transition{
		Token:          req.Token,
		From:           []models.Status{models.StatusPending},
		ActionCodeHash: req.ActionCodeHash,
		Set:            set,
	})
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			s.metrics.RecordDecision(string(action), "conflict")
			return nil, ErrStatusConflict
		}
		s.metrics.RecordDecision(string(action), resultError)
		s.metrics.RecordDatabaseQueryError("transition")
		return nil, err
	}

	s.metrics.RecordDecision(string(action), resultSuccess)
	s.log.Info("access request decided",
		zap.String("action", string(action)),
		zap.String("token", req.Token),
	)

	req.Status = next
	req.ActionCodeHash = ""
	req.ActionExpiresAt = nil
	if next == models.StatusApproved {
		req.ApprovedAt = &now
	}

	if err := s.send(ctx, "requester", req.Token, core.Message{
		To:      req.RequesterEmail,
		Subject: subject,
	}, body); err != nil {
		return nil, err
	}

	return &Decision{
		Action:  action,
		Request: req,
		Message: fmt.Sprintf("User has been %sd.", action),
	}, nil
}

// List returns a page of requests for operators, newest first
func (s *AccessService) List(
	ctx context.Context,
	page, pageSize int,
	status string,
) ([]models.AccessRequest, store.PaginationResult, error) {
	requests, result, err := s.store.ListRequests(ctx, store.NewPaginationParams(page, pageSize, status))
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_requests")
		return nil, store.PaginationResult{}, err
	}
	return requests, result, nil
}
