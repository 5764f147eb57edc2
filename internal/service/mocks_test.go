package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage() *domain.Image {
	return &domain.Image{Data: make([]byte, 5000), Format: "jpeg", Width: 640, Height: 480}
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) DetectFaces(ctx context.Context, img *domain.Image) ([]provider.DetectedFace, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.DetectedFace), args.Error(1)
}

type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) ExtractEncodings(ctx context.Context, img *domain.Image, boxes []domain.BoundingBox) ([]domain.FaceEncoding, error) {
	args := m.Called(ctx, img, boxes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FaceEncoding), args.Error(1)
}

type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) Upsert(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockIdentityStore) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityStore) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Identity), args.Error(1)
}

func (m *MockIdentityStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate() {
	m.Called()
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockGallery struct {
	mock.Mock
}

func (m *MockGallery) Gallery(ctx context.Context) (*domain.Gallery, error) {
	args := m.Called(ctx)
	return args.Get(0).(*domain.Gallery), args.Error(1)
}

type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, img *domain.Image) (*domain.Recognition, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recognition), args.Error(1)
}

type MockAttendanceStore struct {
	mock.Mock
}

func (m *MockAttendanceStore) EnsureSession(ctx context.Context, in domain.SessionInput) (*domain.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAttendanceStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAttendanceStore) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockAttendanceStore) RecordAttendance(ctx context.Context, sessionID string, at time.Time, results []domain.MatchResult) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, sessionID, at, results)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceStore) ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceStore) ListByIdentity(ctx context.Context, identityID string) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

type MockSummaryCache struct {
	mock.Mock
}

func (m *MockSummaryCache) GetJSON(ctx context.Context, key string, dst any) error {
	args := m.Called(ctx, key, dst)
	return args.Error(0)
}

func (m *MockSummaryCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockSummaryCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastAttendance(sessionID string, records []domain.AttendanceRecord, unknownCount int) {
	m.Called(sessionID, records, unknownCount)
}
