package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/audiophile/internal/errors"
)

// DetectRequest is the body of POST /detect. File is relative to the
// media directory.
type DetectRequest struct {
	Keyword string `json:"keyword"`
	File    string `json:"file"`
}

// DetectResponse lists the windows that cleared the threshold. Nothing is
// persisted.
type DetectResponse struct {
	Keyword     string               `json:"keyword"`
	File        string               `json:"file"`
	Predictions []ConfidenceResponse `json:"predictions"`
}

// Detect handles POST /detect.
func (c *Controller) Detect(ctx echo.Context) error {
	var req DetectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" || req.File == "" {
		return c.HandleError(ctx, nil, "keyword and file are required", http.StatusBadRequest)
	}

	path, err := c.resolveMedia(req.File)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid file path", http.StatusBadRequest)
	}

	drafts, err := c.detector.Detect(ctx.Request().Context(), req.Keyword, path)
	if err != nil {
		return c.HandleError(ctx, err, "Detection failed", statusFor(err))
	}

	preds := make([]ConfidenceResponse, 0, len(drafts))
	for _, d := range drafts {
		preds = append(preds, ConfidenceResponse{
			Utterance:  d.Utterance,
			Model:      d.ModelID,
			Time:       d.Time,
			Confidence: d.Confidence,
		})
	}
	return ctx.JSON(http.StatusOK, DetectResponse{
		Keyword:     req.Keyword,
		File:        req.File,
		Predictions: preds,
	})
}

// resolveMedia joins name to the media directory, refusing anything that
// would escape it.
func (c *Controller) resolveMedia(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(clean) {
		return "", errors.Newf("path %q is outside the media directory", name).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return filepath.Join(c.Settings.Media.Dir, clean), nil
}
