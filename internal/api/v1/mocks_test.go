package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/drift"
	"github.com/tphakala/audiophile/internal/ingest"
)

// MockRepository implements repository.Repository for handler tests.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetOrCreateFile(ctx context.Context, name string, duration int) (*entities.File, bool, error) {
	args := m.Called(ctx, name, duration)
	f, _ := args.Get(0).(*entities.File)
	return f, args.Bool(1), args.Error(2)
}

func (m *MockRepository) GetFile(ctx context.Context, id uint) (*entities.File, error) {
	args := m.Called(ctx, id)
	f, _ := args.Get(0).(*entities.File)
	return f, args.Error(1)
}

func (m *MockRepository) ListFiles(ctx context.Context) ([]*entities.File, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).([]*entities.File)
	return f, args.Error(1)
}

func (m *MockRepository) LivePredictions(ctx context.Context, fileID uint) ([]*entities.Prediction, error) {
	args := m.Called(ctx, fileID)
	p, _ := args.Get(0).([]*entities.Prediction)
	return p, args.Error(1)
}

func (m *MockRepository) LivePredictionsByModel(ctx context.Context, fileID uint, modelID string) ([]*entities.Prediction, error) {
	args := m.Called(ctx, fileID, modelID)
	p, _ := args.Get(0).([]*entities.Prediction)
	return p, args.Error(1)
}

func (m *MockRepository) PredictionsByReference(ctx context.Context, fileID uint, reference string) ([]*entities.Prediction, error) {
	args := m.Called(ctx, fileID, reference)
	p, _ := args.Get(0).([]*entities.Prediction)
	return p, args.Error(1)
}

func (m *MockRepository) References(ctx context.Context, fileID uint) ([]string, error) {
	args := m.Called(ctx, fileID)
	r, _ := args.Get(0).([]string)
	return r, args.Error(1)
}

func (m *MockRepository) InsertPredictions(ctx context.Context, predictions []*entities.Prediction) error {
	return m.Called(ctx, predictions).Error(0)
}

func (m *MockRepository) Promote(ctx context.Context, fileID uint, reference string) error {
	return m.Called(ctx, fileID, reference).Error(0)
}

func (m *MockRepository) Commit(ctx context.Context, fileID uint, reference string, predictions []*entities.Prediction, promote bool) error {
	return m.Called(ctx, fileID, reference, predictions, promote).Error(0)
}

func (m *MockRepository) CountPredictions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type stubDetector struct {
	mu       sync.Mutex
	drafts   []detection.Draft
	err      error
	lastPath string
}

func (s *stubDetector) Detect(_ context.Context, _, path string) ([]detection.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPath = path
	return s.drafts, s.err
}

type stubDriftLog struct{ batches []drift.Batch }

func (s stubDriftLog) Drifted() []drift.Batch { return s.batches }

type stubStatus struct {
	state   ingest.State
	running bool
	last    *ingest.PassSummary
	at      time.Time
}

func (s stubStatus) State() ingest.State                        { return s.state }
func (s stubStatus) Running() bool                              { return s.running }
func (s stubStatus) LastPass() (*ingest.PassSummary, time.Time) { return s.last, s.at }

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Media.Dir = t.TempDir()
	s.Media.BaseURL = "http://media.local/audio/"
	s.WebServer.CacheTTL = time.Minute
	return s
}

// setupTestEnvironment returns a router with every route registered.
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *MockRepository, *Controller) {
	t.Helper()
	e := echo.New()
	repo := new(MockRepository)
	c := New(e, repo, testSettings(t), opts...)
	return e, repo, c
}

func strPtr(s string) *string { return &s }
