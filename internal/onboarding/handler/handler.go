package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	accountmodels "medbridge/internal/accounts/models"
	emailmodels "medbridge/internal/emailverify/models"
	"medbridge/internal/onboarding/service"
	"medbridge/internal/platform/metrics"
	"medbridge/internal/platform/middleware"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/platform/httputil"
	"medbridge/pkg/platform/middleware/metadata"
	"medbridge/pkg/platform/middleware/requesttime"
	"medbridge/pkg/requestcontext"
)

// defaultMaxBodyBytes leaves room for a base64-encoded document image.
const defaultMaxBodyBytes = 16 << 20

// Service is the onboarding workflow as seen by the transport.
type Service interface {
	Start(ctx context.Context) (*service.View, string, error)
	Get(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	SelectRole(ctx context.Context, sessionID id.SessionID, role accountmodels.Role) (*service.View, error)
	LookupLicense(ctx context.Context, sessionID id.SessionID, license string) (*service.View, error)
	MatchDocument(ctx context.Context, sessionID id.SessionID, image []byte) (*service.View, error)
	CaptureBiometric(ctx context.Context, sessionID id.SessionID, frame []byte, contentType string) (*service.View, error)
	SendEmailCode(ctx context.Context, sessionID id.SessionID, address string) (*service.View, *emailmodels.CodeSent, error)
	ResendCode(ctx context.Context, sessionID id.SessionID) (*service.View, *emailmodels.CodeSent, error)
	ConfirmEmailCode(ctx context.Context, sessionID id.SessionID, code, password, confirmPassword string) (*service.View, error)
	SetPassword(ctx context.Context, sessionID id.SessionID, password, confirmPassword string) (*service.View, error)
	SubmitReferral(ctx context.Context, sessionID id.SessionID, code string) (*service.View, error)
	Skip(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Back(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Continue(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Reset(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Complete(ctx context.Context, sessionID id.SessionID) (*service.View, *accountmodels.Account, error)
}

// Handler serves the onboarding API.
type Handler struct {
	onboarding   Service
	tokens       middleware.SessionTokenValidator
	metrics      *metrics.Metrics
	logger       *slog.Logger
	validate     *validator.Validate
	maxBodyBytes int64
	timeout      time.Duration
	startLimit   func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithMaxBodyBytes caps request bodies, uploads included.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithStartLimit guards session creation, typically with a per-IP limiter.
func WithStartLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.startLimit = mw
	}
}

func New(onboarding Service, tokens middleware.SessionTokenValidator, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		onboarding:   onboarding,
		tokens:       tokens,
		metrics:      m,
		logger:       logger,
		validate:     newValidator(),
		maxBodyBytes: defaultMaxBodyBytes,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the onboarding routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(metadata.ClientMetadata)
		r.Use(requesttime.Middleware)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))

		if h.startLimit != nil {
			r.With(h.startLimit).Post("/sessions", h.handleStart)
		} else {
			r.Post("/sessions", h.handleStart)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(h.tokens, h.logger))
			r.Get("/session", h.handleGet)
			r.Post("/session/role", h.handleSelectRole)
			r.Post("/session/license", h.handleLicense)
			r.Post("/session/document", h.handleDocument)
			r.Post("/session/biometric", h.handleBiometric)
			r.Post("/session/email/send", h.handleSendCode)
			r.Post("/session/email/resend", h.handleResendCode)
			r.Post("/session/email/confirm", h.handleConfirmCode)
			r.Post("/session/password", h.handlePassword)
			r.Post("/session/referral", h.handleReferral)
			r.Post("/session/skip", h.handleNavigation(h.onboarding.Skip))
			r.Post("/session/back", h.handleNavigation(h.onboarding.Back))
			r.Post("/session/continue", h.handleNavigation(h.onboarding.Continue))
			r.Post("/session/reset", h.handleNavigation(h.onboarding.Reset))
			r.Post("/session/complete", h.handleComplete)
		})
	})
}

type startResponse struct {
	SessionToken string        `json:"session_token"`
	TokenType    string        `json:"token_type"`
	Session      *service.View `json:"session"`
}

type sessionResponse struct {
	Session *service.View `json:"session"`
}

type codeSentResponse struct {
	Session  *service.View         `json:"session"`
	CodeSent *emailmodels.CodeSent `json:"code_sent"`
}

type completeResponse struct {
	Session *service.View          `json:"session"`
	Account *accountmodels.Account `json:"account"`
}

// failureResponse extends the error envelope with retry guidance and the
// unchanged session.
type failureResponse struct {
	Error            string        `json:"error"`
	ErrorDescription string        `json:"error_description,omitempty"`
	Retryable        bool          `json:"retryable"`
	Skippable        bool          `json:"skippable"`
	Session          *service.View `json:"session,omitempty"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, token, err := h.onboarding.Start(ctx)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	h.metrics.IncrementSessionsStarted()
	httputil.WriteJSON(w, http.StatusCreated, startResponse{
		SessionToken: token,
		TokenType:    "Bearer",
		Session:      view,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.onboarding.Get(r.Context(), requestcontext.SessionID(r.Context()))
	h.respond(w, r, view, err)
}

func (h *Handler) handleSelectRole(w http.ResponseWriter, r *http.Request) {
	var req selectRoleRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.SelectRole(ctx, requestcontext.SessionID(ctx), accountmodels.Role(req.Role))
	h.respond(w, r, view, err)
}

func (h *Handler) handleLicense(w http.ResponseWriter, r *http.Request) {
	var req licenseRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.LookupLicense(ctx, requestcontext.SessionID(ctx), req.LicenseNumber)
	h.respond(w, r, view, err)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.MatchDocument(ctx, requestcontext.SessionID(ctx), req.Image)
	h.respond(w, r, view, err)
}

func (h *Handler) handleBiometric(w http.ResponseWriter, r *http.Request) {
	var req biometricRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.CaptureBiometric(ctx, requestcontext.SessionID(ctx), req.Frame, req.ContentType)
	h.respond(w, r, view, err)
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, sent, err := h.onboarding.SendEmailCode(ctx, requestcontext.SessionID(ctx), req.Email)
	if err != nil {
		h.fail(w, r, view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, codeSentResponse{Session: view, CodeSent: sent})
}

func (h *Handler) handleResendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, sent, err := h.onboarding.ResendCode(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(w, r, view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, codeSentResponse{Session: view, CodeSent: sent})
}

func (h *Handler) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	var req confirmCodeRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.ConfirmEmailCode(ctx, requestcontext.SessionID(ctx), req.Code, req.Password, req.ConfirmPassword)
	h.respond(w, r, view, err)
}

func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.SetPassword(ctx, requestcontext.SessionID(ctx), req.Password, req.ConfirmPassword)
	h.respond(w, r, view, err)
}

func (h *Handler) handleReferral(w http.ResponseWriter, r *http.Request) {
	var req referralRequest
	if !h.read(w, r, &req) {
		return
	}
	ctx := r.Context()
	view, err := h.onboarding.SubmitReferral(ctx, requestcontext.SessionID(ctx), req.ReferralCode)
	h.respond(w, r, view, err)
}

func (h *Handler) handleNavigation(op func(context.Context, id.SessionID) (*service.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := op(r.Context(), requestcontext.SessionID(r.Context()))
		h.respond(w, r, view, err)
	}
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, account, err := h.onboarding.Complete(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(w, r, view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, completeResponse{Session: view, Account: account})
}

// read decodes the request body. On failure it writes the response together
// with the current session view and returns false.
func (h *Handler) read(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := h.decode(w, r, dst); err != nil {
		ctx := r.Context()
		view, _ := h.onboarding.Get(ctx, requestcontext.SessionID(ctx))
		h.fail(w, r, view, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, view *service.View, err error) {
	if err != nil {
		h.fail(w, r, view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Session: view})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, view *service.View, err error) {
	ctx := r.Context()
	code, desc := httputil.Describe(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "onboarding request failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		h.logger.InfoContext(ctx, "onboarding request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"code", string(code),
		)
	}
	httputil.WriteJSON(w, httputil.StatusFor(code), failureResponse{
		Error:            string(code),
		ErrorDescription: desc,
		Retryable:        service.Retryable(code),
		Skippable:        service.Skippable(view, code),
		Session:          view,
	})
}
