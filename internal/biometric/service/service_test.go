package service

//go:generate mockgen -source=../camera/camera.go -destination=mocks/mocks.go -package=mocks Camera,Stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"medbridge/internal/biometric/camera"
	"medbridge/internal/biometric/models"
	"medbridge/internal/biometric/service/mocks"
	"medbridge/internal/biometric/verifier"
	dErrors "medbridge/pkg/domain-errors"
)

type funcVerifier func(context.Context, models.Frame, *models.Reference) error

func (f funcVerifier) Verify(ctx context.Context, frame models.Frame, ref *models.Reference) error {
	return f(ctx, frame, ref)
}

type ServiceSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	camera *mocks.MockCamera
	stream *mocks.MockStream
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.camera = mocks.NewMockCamera(s.ctrl)
	s.stream = mocks.NewMockStream(s.ctrl)
}

func (s *ServiceSuite) TestCaptureStopsStreamOnSuccess() {
	s.camera.EXPECT().Acquire(gomock.Any()).Return(s.stream, nil)
	s.stream.EXPECT().Capture(gomock.Any()).Return(models.Frame{Data: []byte("f")}, nil)
	s.stream.EXPECT().Stop().Return(nil).Times(1)

	frame, err := New(verifier.AlwaysPass{}).Capture(context.Background(), s.camera)
	s.Require().NoError(err)
	s.Equal([]byte("f"), frame.Data)
}

func (s *ServiceSuite) TestCaptureStopsStreamOnFailure() {
	s.camera.EXPECT().Acquire(gomock.Any()).Return(s.stream, nil)
	s.stream.EXPECT().Capture(gomock.Any()).Return(models.Frame{}, errors.New("sensor glitch"))
	s.stream.EXPECT().Stop().Return(nil).Times(1)

	_, err := New(verifier.AlwaysPass{}).Capture(context.Background(), s.camera)
	s.True(dErrors.HasCode(err, dErrors.CodeResourceUnavailable))
}

func (s *ServiceSuite) TestCaptureStopsStreamOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	s.camera.EXPECT().Acquire(gomock.Any()).Return(s.stream, nil)
	s.stream.EXPECT().Capture(gomock.Any()).DoAndReturn(func(context.Context) (models.Frame, error) {
		cancel()
		return models.Frame{}, context.Canceled
	})
	s.stream.EXPECT().Stop().Return(errors.New("already closed")).Times(1)

	_, err := New(verifier.AlwaysPass{}).Capture(ctx, s.camera)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestAcquireFailureIsCameraUnavailable() {
	s.camera.EXPECT().Acquire(gomock.Any()).Return(nil, errors.New("permission denied"))

	err := New(verifier.AlwaysPass{}).CaptureAndVerify(context.Background(), s.camera, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeResourceUnavailable))
	s.ErrorIs(err, models.ErrCameraUnavailable)
}

func (s *ServiceSuite) TestVerifierOutcomes() {
	cam := func() camera.Camera { return camera.NewUploadedFrameCamera([]byte("selfie"), "image/jpeg") }

	s.Run("pass", func() {
		s.NoError(New(verifier.AlwaysPass{}).CaptureAndVerify(context.Background(), cam(), nil))
	})

	s.Run("mismatch", func() {
		v := funcVerifier(func(context.Context, models.Frame, *models.Reference) error { return models.ErrFaceMismatch })
		err := New(v).CaptureAndVerify(context.Background(), cam(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
	})

	s.Run("matcher down", func() {
		v := funcVerifier(func(context.Context, models.Frame, *models.Reference) error { return errors.New("dial tcp") })
		err := New(v).CaptureAndVerify(context.Background(), cam(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorIs(err, models.ErrMatcherUnavailable)
	})

	s.Run("reference is forwarded", func() {
		ref := &models.Reference{Data: []byte("passport")}
		v := funcVerifier(func(_ context.Context, frame models.Frame, got *models.Reference) error {
			s.Same(ref, got)
			s.Equal([]byte("selfie"), frame.Data)
			return nil
		})
		s.NoError(New(v).CaptureAndVerify(context.Background(), cam(), ref))
	})
}
