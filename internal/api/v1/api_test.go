package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/drift"
	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/ingest"
	"github.com/tphakala/audiophile/internal/myaudio"
	"github.com/tphakala/audiophile/internal/notify"
)

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e, repo, _ := setupTestEnvironment(t, WithPassStatus(stubStatus{
		state:   ingest.StateDetecting,
		running: true,
		last:    &ingest.PassSummary{Files: 3, Committed: 2, Skipped: 1, Predictions: 7},
		at:      at,
	}, func() {}))
	repo.On("CountPredictions", mock.Anything).Return(int64(7), nil)

	rec := serve(t, e, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])

	ingestion, ok := body["ingest"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "detecting", ingestion["state"])
	assert.Equal(t, true, ingestion["running"])
	last, ok := ingestion["last_pass"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, last["files"], 0)
	assert.InDelta(t, 7, last["predictions"], 0)
}

func TestHealthCheckDegraded(t *testing.T) {
	t.Parallel()

	e, repo, _ := setupTestEnvironment(t)
	repo.On("CountPredictions", mock.Anything).Return(int64(0), errors.New("database is locked"))

	rec := serve(t, e, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	e, repo, _ := setupTestEnvironment(t)
	repo.On("ListFiles", mock.Anything).Return([]*entities.File{
		{ID: 1, Name: "a b.wav", Duration: 3, CurrentReference: strPtr("ref-1")},
		{ID: 2, Name: "c.wav", Duration: 5},
	}, nil)

	rec := serve(t, e, http.MethodGet, "/api/v1/files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var files []FileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "a b.wav", files[0].File)
	assert.Equal(t, "ref-1", files[0].CurrentReference)
	assert.Equal(t, "http://media.local/audio/a%20b.wav", files[0].URL)
	assert.Empty(t, files[1].CurrentReference)
}

func TestGetFileEmbedsLivePredictions(t *testing.T) {
	t.Parallel()

	e, repo, _ := setupTestEnvironment(t)
	repo.On("GetFile", mock.Anything, uint(4)).
		Return(&entities.File{ID: 4, Name: "x.wav", Duration: 2, CurrentReference: strPtr("r")}, nil)
	repo.On("LivePredictions", mock.Anything, uint(4)).Return([]*entities.Prediction{
		{FileID: 4, Reference: "r", Utterance: "yes", ModelID: "m1", Time: 0.5, Confidence: 0.9},
		{FileID: 4, Reference: "r", Utterance: "yes", ModelID: "m2", Time: 1.0, Confidence: 0.7},
	}, nil).Once()

	for range 2 {
		rec := serve(t, e, http.MethodGet, "/api/v1/files/4", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp FileDetailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "x.wav", resp.File)
		assert.Equal(t, 2, resp.Duration)
		require.Len(t, resp.Confidences, 2)
		assert.Equal(t, ConfidenceResponse{Utterance: "yes", Model: "m1", Time: 0.5, Confidence: 0.9}, resp.Confidences[0])
	}

	// second read was served from cache
	repo.AssertNumberOfCalls(t, "LivePredictions", 1)
}

func TestGetFileWithoutLiveGeneration(t *testing.T) {
	t.Parallel()

	e, repo, _ := setupTestEnvironment(t)
	repo.On("GetFile", mock.Anything, uint(9)).Return(&entities.File{ID: 9, Name: "new.wav"}, nil)
	repo.On("LivePredictions", mock.Anything, uint(9)).Return([]*entities.Prediction(nil), nil)

	rec := serve(t, e, http.MethodGet, "/api/v1/files/9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confidences":[]`)
}

func TestGetFileErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		path     string
		setup    func(*MockRepository)
		wantCode int
	}{
		{
			name:     "non-numeric id",
			path:     "/api/v1/files/abc",
			setup:    func(*MockRepository) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing file",
			path: "/api/v1/files/77",
			setup: func(m *MockRepository) {
				m.On("GetFile", mock.Anything, uint(77)).Return(nil, repository.ErrFileNotFound)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "database failure",
			path: "/api/v1/files/5",
			setup: func(m *MockRepository) {
				m.On("GetFile", mock.Anything, uint(5)).Return(nil, errors.New("disk I/O error"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, repo, _ := setupTestEnvironment(t)
			tc.setup(repo)

			rec := serve(t, e, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Len(t, resp.CorrelationID, 8)
		})
	}
}

func TestGetFilePredictionsByModel(t *testing.T) {
	t.Parallel()

	e, repo, _ := setupTestEnvironment(t)
	repo.On("GetFile", mock.Anything, uint(1)).Return(&entities.File{ID: 1, CurrentReference: strPtr("r")}, nil)
	repo.On("LivePredictionsByModel", mock.Anything, uint(1), "m2").Return([]*entities.Prediction{
		{Utterance: "go", ModelID: "m2", Time: 2, Confidence: 0.6},
	}, nil)

	rec := serve(t, e, http.MethodGet, "/api/v1/files/1/predictions?model=m2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var preds []ConfidenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preds))
	require.Len(t, preds, 1)
	assert.Equal(t, "m2", preds[0].Model)
	repo.AssertNotCalled(t, "LivePredictions", mock.Anything, mock.Anything)
}

func TestCommitEventInvalidatesCache(t *testing.T) {
	t.Parallel()

	e, repo, c := setupTestEnvironment(t)
	file := &entities.File{ID: 3, Name: "f.wav", CurrentReference: strPtr("r1")}
	repo.On("GetFile", mock.Anything, uint(3)).Return(file, nil)
	repo.On("LivePredictions", mock.Anything, uint(3)).Return([]*entities.Prediction{
		{Utterance: "yes", ModelID: "m", Confidence: 0.8},
	}, nil)

	require.Equal(t, http.StatusOK, serve(t, e, http.MethodGet, "/api/v1/files/3", "").Code)
	require.Equal(t, 1, c.liveCache.ItemCount())

	sub := c.Subscriber()
	require.NoError(t, sub.Publish(context.Background(), &notify.Event{Type: notify.EventDriftDetected, FileID: 3}))
	assert.Equal(t, 1, c.liveCache.ItemCount(), "only commits invalidate")

	require.NoError(t, sub.Publish(context.Background(), &notify.Event{Type: notify.EventGenerationCommitted, FileID: 3}))
	assert.Equal(t, 0, c.liveCache.ItemCount())
}

func TestDetect(t *testing.T) {
	t.Parallel()

	det := &stubDetector{drafts: []detection.Draft{
		{Utterance: "yes", ModelID: "m1", Offset: 8000, Time: 0.5, Confidence: 0.91},
	}}
	e, repo, c := setupTestEnvironment(t, WithDetector(det))

	rec := serve(t, e, http.MethodPost, "/api/v1/detect", `{"keyword":"yes","file":"sub/a.wav"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "yes", resp.Keyword)
	require.Len(t, resp.Predictions, 1)
	assert.InDelta(t, 0.91, resp.Predictions[0].Confidence, 1e-9)
	assert.Equal(t, filepath.Join(c.Settings.Media.Dir, "sub", "a.wav"), det.lastPath)

	// detection never writes
	repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "InsertPredictions", mock.Anything, mock.Anything)
}

func TestDetectErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "malformed body", body: `{"keyword":`, wantCode: http.StatusBadRequest},
		{name: "missing keyword", body: `{"file":"a.wav"}`, wantCode: http.StatusBadRequest},
		{name: "path traversal", body: `{"keyword":"yes","file":"../../etc/passwd"}`, wantCode: http.StatusBadRequest},
		{name: "absolute path", body: `{"keyword":"yes","file":"/etc/passwd"}`, wantCode: http.StatusBadRequest},
		{name: "unknown keyword", body: `{"keyword":"nope","file":"a.wav"}`, err: inference.ErrUnknownKeyword, wantCode: http.StatusNotFound},
		{name: "missing audio", body: `{"keyword":"yes","file":"a.wav"}`, err: myaudio.ErrAudioNotFound, wantCode: http.StatusNotFound},
		{name: "model failure", body: `{"keyword":"yes","file":"a.wav"}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, _, _ := setupTestEnvironment(t, WithDetector(&stubDetector{err: tc.err}))
			rec := serve(t, e, http.MethodPost, "/api/v1/detect", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestOptionalRoutesAbsent(t *testing.T) {
	t.Parallel()

	e, _, _ := setupTestEnvironment(t)
	assert.Equal(t, http.StatusNotFound, serve(t, e, http.MethodGet, "/api/v1/drift", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, e, http.MethodPost, "/api/v1/files", "").Code)
}

func TestListDriftNewestFirst(t *testing.T) {
	t.Parallel()

	log := stubDriftLog{batches: []drift.Batch{
		{FileID: 1, FileName: "old.wav", Reference: "r1", Result: drift.Result{Drifted: true, Statistic: 0.9, PValue: 0.001, BaselineSize: 4, CandidateSize: 5}},
		{FileID: 2, FileName: "new.wav", Reference: "r2", Promoted: true,
			Predictions: []detection.Draft{{Utterance: "yes", ModelID: "m", Time: 1, Confidence: 0.99}}},
	}}
	e, _, _ := setupTestEnvironment(t, WithDriftLog(log))

	rec := serve(t, e, http.MethodGet, "/api/v1/drift", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []DriftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "new.wav", resp[0].File)
	assert.True(t, resp[0].Promoted)
	require.Len(t, resp[0].Predictions, 1)
	assert.Equal(t, "old.wav", resp[1].File)
	assert.InDelta(t, 0.001, resp[1].PValue, 1e-12)
	assert.Equal(t, 4, resp[1].Baseline)
}

func TestTriggerPass(t *testing.T) {
	t.Parallel()

	triggered := make(chan struct{}, 1)
	e, _, _ := setupTestEnvironment(t, WithPassStatus(stubStatus{}, func() { triggered <- struct{}{} }))

	rec := serve(t, e, http.MethodPost, "/api/v1/passes", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-triggered:
	default:
		t.Fatal("trigger was not called")
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 50 {
		id := generateCorrelationID()
		assert.Len(t, id, 8)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}
