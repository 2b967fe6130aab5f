package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CodeStore,Dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"medbridge/internal/cooldown"
	cstore "medbridge/internal/cooldown/store"
	"medbridge/internal/emailverify/models"
	"medbridge/internal/emailverify/service/mocks"
	"medbridge/internal/emailverify/store"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/requestcontext"
)

func fixedCode(code string) Generator {
	return func() (string, error) { return code, nil }
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	dispatcher *mocks.MockDispatcher
	codes      *store.InMemoryCodeStore
	service    *Service
	now        time.Time
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.dispatcher = mocks.NewMockDispatcher(s.ctrl)
	s.codes = store.NewInMemoryCodeStore()
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	limiter := cooldown.New(cstore.NewInMemoryStore().WithClock(clock), 1, time.Minute)
	attempts := cooldown.New(cstore.NewInMemoryStore().WithClock(clock), 3, 10*time.Minute)
	s.service = New(s.codes, s.dispatcher,
		WithGenerator(fixedCode("451452")),
		WithCooldown(limiter),
		WithAttemptLimit(attempts),
	)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestSendCode() {
	s.Run("dispatches code bound to normalized address", func() {
		s.dispatcher.EXPECT().Dispatch(gomock.Any(), models.Message{
			To:          "jane.doe@nhs.net",
			Code:        "451452",
			DisplayName: "Jane Doe",
			ExpiresAt:   s.now.Add(10 * time.Minute),
		}).Return(nil)

		sent, err := s.service.SendCode(s.ctx, "  Jane.Doe@NHS.net ", "Jane Doe", models.RequireInstitutional)
		s.Require().NoError(err)
		s.Equal("jane.doe@nhs.net", sent.Email)
		s.Equal(s.now.Add(10*time.Minute), sent.ExpiresAt)
		s.Equal(s.now.Add(time.Minute), sent.ResendAllowedAt)
	})

	s.Run("resend inside cooldown is rate limited", func() {
		_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane Doe", models.RequireInstitutional)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})
}

func (s *ServiceSuite) TestSendCodeRejectsOutsideDomain() {
	for _, addr := range []string{"jane@gmail.com", "jane@nhs.net.evil.com", "jane@notnhs.net"} {
		s.Run(addr, func() {
			_, err := s.service.SendCode(s.ctx, addr, "Jane", models.RequireInstitutional)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
			s.ErrorIs(err, models.ErrDomainRejected)
		})
	}
}

func (s *ServiceSuite) TestSendCodeAnyDomainPolicy() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.service.SendCode(s.ctx, "clinician@gmail.com", "", models.AnyDomain)
	s.NoError(err)
}

func (s *ServiceSuite) TestSendCodeRejectsMalformedAddress() {
	_, err := s.service.SendCode(s.ctx, "not-an-email", "", models.AnyDomain)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestDispatchFailureIsRetryable() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.ErrorIs(err, models.ErrDispatchFailed)

	// The undelivered code is gone and the cooldown released.
	s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, "451452", "jane.doe@nhs.net"), dErrors.CodeMismatch))
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	_, err = s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.NoError(err)
}

func (s *ServiceSuite) TestConfirmCode() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)

	s.Run("malformed code is invalid input", func() {
		for _, code := range []string{"", "45145", "4514521", "45a452"} {
			s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, code, "jane.doe@nhs.net"), dErrors.CodeInvalidInput))
		}
	})

	s.Run("wrong code is a mismatch", func() {
		s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, "000000", "jane.doe@nhs.net"), dErrors.CodeMismatch))
	})

	s.Run("right code for another address is a mismatch", func() {
		s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, "451452", "john@nhs.net"), dErrors.CodeMismatch))
	})

	s.Run("matching pair succeeds once", func() {
		s.NoError(s.service.ConfirmCode(s.ctx, "451452", "Jane.Doe@nhs.net"))
		err := s.service.ConfirmCode(s.ctx, "451452", "jane.doe@nhs.net")
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
	})
}

func (s *ServiceSuite) TestRepeatedWrongCodesLockTheCode() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)

	for _, guess := range []string{"000000", "000001", "000002"} {
		s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, guess, "jane.doe@nhs.net"), dErrors.CodeMismatch))
	}

	err = s.service.ConfirmCode(s.ctx, "451452", "jane.doe@nhs.net")
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Contains(dErrors.MessageOf(err), "request a new one")

	s.Run("a new code resets the count", func() {
		s.now = s.now.Add(time.Minute)
		ctx := requestcontext.WithTime(context.Background(), s.now)
		_, err := s.service.SendCode(ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
		s.Require().NoError(err)
		s.NoError(s.service.ConfirmCode(ctx, "451452", "jane.doe@nhs.net"))
	})
}

func (s *ServiceSuite) TestLockedCodeIsDropped() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)
	for range 4 {
		_ = s.service.ConfirmCode(s.ctx, "000000", "jane.doe@nhs.net")
	}

	// Even with the counter cleared, the locked code no longer exists.
	s.Require().NoError(s.service.attempts.Release(s.ctx, attemptKey("jane.doe@nhs.net")))
	s.True(dErrors.HasCode(s.service.ConfirmCode(s.ctx, "451452", "jane.doe@nhs.net"), dErrors.CodeMismatch))
}

func (s *ServiceSuite) TestResendSupersedesPreviousCode() {
	codes := []string{"111111", "222222"}
	s.service.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Minute)
	ctx := requestcontext.WithTime(context.Background(), s.now)
	_, err = s.service.SendCode(ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)

	s.True(dErrors.HasCode(s.service.ConfirmCode(ctx, "111111", "jane.doe@nhs.net"), dErrors.CodeMismatch))
	s.NoError(s.service.ConfirmCode(ctx, "222222", "jane.doe@nhs.net"))
}

func (s *ServiceSuite) TestExpiredCodeRejected() {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.SendCode(s.ctx, "jane.doe@nhs.net", "Jane", models.RequireInstitutional)
	s.Require().NoError(err)

	late := requestcontext.WithTime(context.Background(), s.now.Add(10*time.Minute))
	err = s.service.ConfirmCode(late, "451452", "jane.doe@nhs.net")
	s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
	s.Contains(dErrors.MessageOf(err), "expired")
}

func (s *ServiceSuite) TestStoreFailureIsUnavailable() {
	codes := mocks.NewMockCodeStore(s.ctrl)
	svc := New(codes, s.dispatcher, WithGenerator(fixedCode("451452")))
	codes.EXPECT().Consume(gomock.Any(), "jane.doe@nhs.net", "451452", gomock.Any()).Return(errors.New("redis down"))

	err := svc.ConfirmCode(s.ctx, "451452", "jane.doe@nhs.net")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not six digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q has non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("generator returned a constant")
	}
}
