// Package api implements the v1 REST API: file and prediction reads,
// on-demand detection and drift inspection.
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/drift"
	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/ingest"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/myaudio"
	"github.com/tphakala/audiophile/internal/notify"
)

// Detector runs on-demand detection.
type Detector interface {
	Detect(ctx context.Context, keyword, path string) ([]detection.Draft, error)
}

// DriftLog exposes retained drifted batches.
type DriftLog interface {
	Drifted() []drift.Batch
}

// PassStatus exposes the ingestion coordinator state.
type PassStatus interface {
	State() ingest.State
	Running() bool
	LastPass() (*ingest.PassSummary, time.Time)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Repo     repository.Repository
	Settings *conf.Settings

	detector  Detector
	driftLog  DriftLog
	status    PassStatus
	trigger   func()
	liveCache *cache.Cache
	startTime time.Time
	log       logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithDetector enables POST /detect.
func WithDetector(d Detector) Option {
	return func(c *Controller) { c.detector = d }
}

// WithDriftLog enables GET /drift.
func WithDriftLog(d DriftLog) Option {
	return func(c *Controller) { c.driftLog = d }
}

// WithPassStatus adds coordinator state to /health and enables /passes.
func WithPassStatus(s PassStatus, trigger func()) Option {
	return func(c *Controller) {
		c.status = s
		c.trigger = trigger
	}
}

// New creates the controller and registers its routes under /api/v1.
func New(e *echo.Echo, repo repository.Repository, settings *conf.Settings, opts ...Option) *Controller {
	ttl := settings.WebServer.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v1"),
		Repo:      repo,
		Settings:  settings,
		liveCache: cache.New(ttl, 2*ttl),
		startTime: time.Now(),
		log:       logger.Global().Module("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/files", c.ListFiles)
	c.Group.GET("/files/:id", c.GetFile)
	c.Group.GET("/files/:id/predictions", c.GetFilePredictions)
	if c.detector != nil {
		c.Group.POST("/detect", c.Detect)
	}
	if c.driftLog != nil {
		c.Group.GET("/drift", c.ListDrift)
	}
	if c.trigger != nil {
		c.Group.POST("/passes", c.TriggerPass)
	}
}

// Subscriber returns an event sink that drops cached live predictions
// whenever a file's generation changes.
func (c *Controller) Subscriber() notify.Publisher {
	return notify.NewFuncPublisher("api-cache", func(_ context.Context, ev *notify.Event) error {
		if ev.Type == notify.EventGenerationCommitted && ev.FileID != 0 {
			c.invalidate(ev.FileID)
		}
		return nil
	})
}

// HealthCheck handles GET /health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).Round(time.Second).String(),
	}

	dbStatus := "connected"
	if _, err := c.Repo.CountPredictions(ctx.Request().Context()); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	if c.status != nil {
		ingestion := map[string]any{
			"state":   c.status.State().String(),
			"running": c.status.Running(),
		}
		if last, at := c.status.LastPass(); last != nil {
			ingestion["last_pass"] = newPassResponse(last, at)
		}
		response["ingest"] = ingestion
	}

	code := http.StatusOK
	if dbStatus != "connected" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, response)
}

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an ErrorResponse with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusFor maps not-found kinds to 404, validation to 400 and the rest to 500.
func statusFor(err error) int {
	switch {
	case errors.IsNotFound(err),
		errors.Is(err, repository.ErrFileNotFound),
		errors.Is(err, myaudio.ErrAudioNotFound),
		errors.Is(err, inference.ErrUnknownKeyword):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
