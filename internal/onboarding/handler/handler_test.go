package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	accountmodels "medbridge/internal/accounts/models"
	accountstore "medbridge/internal/accounts/store"
	cooldownmiddleware "medbridge/internal/cooldown/middleware"
	cooldownstore "medbridge/internal/cooldown/store"
	emailmodels "medbridge/internal/emailverify/models"
	"medbridge/internal/onboarding/models"
	"medbridge/internal/onboarding/service"
	"medbridge/internal/onboarding/service/mocks"
	"medbridge/internal/onboarding/store"
	"medbridge/internal/sessiontoken"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/testutil"
)

var handlerNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return handlerNow }

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistryLookup
	email    *mocks.MockEmailVerifier
	accounts *accountstore.InMemoryStore
	router   chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistryLookup(s.ctrl)
	s.email = mocks.NewMockEmailVerifier(s.ctrl)
	s.accounts = accountstore.NewInMemoryStore()
	tokens := sessiontoken.NewService("handler-test-key", "medbridge", "medbridge-onboarding")

	svc, err := service.New(store.NewInMemorySessionStore(time.Hour).WithClock(fixedClock), s.accounts, tokens, service.Gates{
		Registry:  s.registry,
		Documents: mocks.NewMockDocumentMatcher(s.ctrl),
		Biometric: mocks.NewMockBiometricGate(s.ctrl),
		Email:     s.email,
	})
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, tokens, logger, nil, WithMaxBodyBytes(1024))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) start() string {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/onboarding/sessions"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[startResponse](s.T(), rr)
	s.Require().NotEmpty(resp.SessionToken)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(models.StepRoleSelect, resp.Session.Step)
	return resp.SessionToken
}

func (s *HandlerSuite) post(token, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, body)
	return testutil.DoRequest(s.router, testutil.WithBearer(req, token))
}

func (s *HandlerSuite) TestSessionTokenRequired() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/onboarding/session"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/onboarding/session"), "not-a-token")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestGetSession() {
	token := s.start()
	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/onboarding/session"), token)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[sessionResponse](s.T(), rr)
	s.Equal(models.StepRoleSelect, resp.Session.Step)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *HandlerSuite) TestMalformedLicenseEnvelope() {
	token := s.start()
	rr := s.post(token, "/onboarding/session/role", selectRoleRequest{Role: "uk_specialist"})
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.post(token, "/onboarding/session/license", licenseRequest{LicenseNumber: "123"})
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("invalid_input", resp.Error)
	s.Equal("license number must be exactly 7 digits", resp.ErrorDescription)
	s.True(resp.Retryable)
	s.False(resp.Skippable)
	s.Require().NotNil(resp.Session)
	s.Equal(models.StepRegistryLookup, resp.Session.Step)
	s.Equal(models.StatusPending, resp.Session.Gates[models.StepRegistryLookup].Status)
}

func (s *HandlerSuite) TestMissingFieldIsInvalidInput() {
	token := s.start()
	s.post(token, "/onboarding/session/role", selectRoleRequest{Role: "uk_specialist"})

	rr := s.post(token, "/onboarding/session/license", map[string]string{})
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("license_number is required", resp.ErrorDescription)
	s.NotNil(resp.Session)
}

func (s *HandlerSuite) TestOversizedBodyIsRejected() {
	token := s.start()
	rr := s.post(token, "/onboarding/session/document", documentRequest{Image: make([]byte, 4096)})
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("request body is too large", resp.ErrorDescription)
}

func (s *HandlerSuite) TestLicenseIsTrimmed() {
	token := s.start()
	s.post(token, "/onboarding/session/role", selectRoleRequest{Role: "uk_specialist"})
	s.registry.EXPECT().Lookup(gomock.Any(), "7654321").
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "registry is unavailable, please retry"))

	rr := s.post(token, "/onboarding/session/license", licenseRequest{LicenseNumber: " 7654321 "})
	testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("unavailable", resp.Error)
	s.True(resp.Retryable)
	s.False(resp.Skippable)
	s.Equal(models.StatusFailed, resp.Session.Gates[models.StepRegistryLookup].Status)
}

func (s *HandlerSuite) TestReferralIsComparedVerbatim() {
	token := s.start()
	s.post(token, "/onboarding/session/role", selectRoleRequest{Role: "gaza_clinician"})

	rr := s.post(token, "/onboarding/session/referral", referralRequest{ReferralCode: " DeenDevelopers "})
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("policy_blocked", resp.Error)
	s.False(resp.Retryable)
	s.False(resp.Skippable)
	s.True(resp.Session.Blocked)

	rr = s.post(token, "/onboarding/session/skip", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "policy_blocked")

	rr = s.post(token, "/onboarding/session/reset", nil)
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestGazaClinicianFlow() {
	token := s.start()

	rr := s.post(token, "/onboarding/session/role", selectRoleRequest{Role: "gaza_clinician"})
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.post(token, "/onboarding/session/referral", referralRequest{ReferralCode: "DeenDevelopers"})
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(models.StepEmailVerifyGaza, testutil.UnmarshalResponse[sessionResponse](s.T(), rr).Session.Step)

	s.email.EXPECT().SendCode(gomock.Any(), "amal@gmail.com", gomock.Any(), emailmodels.AnyDomain).
		Return(&emailmodels.CodeSent{Email: "amal@gmail.com"}, nil)
	rr = s.post(token, "/onboarding/session/email/send", sendCodeRequest{Email: " amal@gmail.com "})
	testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
	sent := testutil.UnmarshalResponse[codeSentResponse](s.T(), rr)
	s.Equal("amal@gmail.com", sent.CodeSent.Email)

	s.email.EXPECT().ConfirmCode(gomock.Any(), "123456", "amal@gmail.com").Return(nil)
	rr = s.post(token, "/onboarding/session/email/confirm", confirmCodeRequest{
		Code:            "123456",
		Password:        " spaced password ",
		ConfirmPassword: " spaced password ",
	})
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(models.StepComplete, testutil.UnmarshalResponse[sessionResponse](s.T(), rr).Session.Step)

	rr = s.post(token, "/onboarding/session/complete", nil)
	testutil.AssertStatusOK(s.T(), rr)
	done := testutil.UnmarshalResponse[completeResponse](s.T(), rr)
	s.Equal(accountmodels.StatusVerified, done.Account.Status)
	s.Equal(accountmodels.RoleGazaClinician, done.Account.Role)
	s.Equal(done.Account.ID.String(), done.Session.AccountID)

	approved, err := s.accounts.ListApproved(s.T().Context())
	s.Require().NoError(err)
	s.Len(approved, 1)
}

func (s *HandlerSuite) TestCompleteBeforeFinishIsConflict() {
	token := s.start()
	rr := s.post(token, "/onboarding/session/complete", nil)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	resp := testutil.UnmarshalResponse[failureResponse](s.T(), rr)
	s.Equal("conflict", resp.Error)
	s.True(resp.Retryable)
}

func (s *HandlerSuite) TestSessionStartIsRateLimited() {
	tokens := sessiontoken.NewService("handler-test-key", "medbridge", "medbridge-onboarding")
	svc, err := service.New(store.NewInMemorySessionStore(time.Hour).WithClock(fixedClock), s.accounts, tokens, service.Gates{
		Registry:  s.registry,
		Documents: mocks.NewMockDocumentMatcher(s.ctrl),
		Biometric: mocks.NewMockBiometricGate(s.ctrl),
		Email:     s.email,
	})
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := cooldownmiddleware.New(cooldownstore.NewInMemoryStore(), 1, time.Minute, logger)
	r := chi.NewRouter()
	New(svc, tokens, logger, nil, WithStartLimit(limiter.LimitByIP("session_start"))).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodPost, "/onboarding/sessions"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodPost, "/onboarding/sessions"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate_limited")
	s.NotEmpty(rr.Header().Get("Retry-After"))
}

func TestSanitize(t *testing.T) {
	req := confirmCodeRequest{Code: " 123456 ", Password: " pw with spaces ", ConfirmPassword: " pw "}
	sanitize(&req)
	assert.Equal(t, "123456", req.Code)
	assert.Equal(t, " pw with spaces ", req.Password)
	assert.Equal(t, " pw ", req.ConfirmPassword)

	sanitize(nil)
	sanitize(req)
}
