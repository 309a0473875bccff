package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/audiophile/internal/datastore/entities"
)

// FileResponse describes a stored file.
type FileResponse struct {
	ID               uint   `json:"id"`
	File             string `json:"file"`
	Duration         int    `json:"duration"`
	CurrentReference string `json:"current_reference,omitempty"`
	URL              string `json:"url,omitempty"`
}

// FileDetailResponse is a file together with its live confidences.
type FileDetailResponse struct {
	FileResponse
	Confidences []ConfidenceResponse `json:"confidences"`
}

// ConfidenceResponse is one live prediction.
type ConfidenceResponse struct {
	Utterance  string  `json:"utterance"`
	Model      string  `json:"model"`
	Time       float64 `json:"time"`
	Confidence float64 `json:"confidence"`
}

// ListFiles handles GET /files.
func (c *Controller) ListFiles(ctx echo.Context) error {
	files, err := c.Repo.ListFiles(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list files", http.StatusInternalServerError)
	}

	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, c.fileResponse(f))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetFile handles GET /files/:id and embeds the live predictions.
func (c *Controller) GetFile(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid file ID", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	file, err := c.Repo.GetFile(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get file", statusFor(err))
	}

	confidences, err := c.liveConfidences(ctx, file)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get predictions", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, FileDetailResponse{
		FileResponse: c.fileResponse(file),
		Confidences:  nonNil(confidences),
	})
}

// GetFilePredictions handles GET /files/:id/predictions, optionally
// filtered with ?model=.
func (c *Controller) GetFilePredictions(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid file ID", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	file, err := c.Repo.GetFile(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get file", statusFor(err))
	}

	model := strings.TrimSpace(ctx.QueryParam("model"))
	if model == "" {
		confidences, err := c.liveConfidences(ctx, file)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to get predictions", statusFor(err))
		}
		return ctx.JSON(http.StatusOK, nonNil(confidences))
	}

	preds, err := c.Repo.LivePredictionsByModel(reqCtx, file.ID, model)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get predictions", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, nonNil(toConfidences(preds)))
}

// liveConfidences reads through the cache, keyed by file and live reference
// so a promote is never served stale even before invalidation arrives.
func (c *Controller) liveConfidences(ctx echo.Context, file *entities.File) ([]ConfidenceResponse, error) {
	key := cacheKey(file.ID, file.LiveReference())
	if cached, found := c.liveCache.Get(key); found {
		if v, ok := cached.([]ConfidenceResponse); ok {
			return v, nil
		}
	}

	preds, err := c.Repo.LivePredictions(ctx.Request().Context(), file.ID)
	if err != nil {
		return nil, err
	}
	out := toConfidences(preds)
	c.liveCache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

func (c *Controller) invalidate(fileID uint) {
	prefix := strconv.FormatUint(uint64(fileID), 10) + ":"
	for key := range c.liveCache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.liveCache.Delete(key)
		}
	}
}

func (c *Controller) fileResponse(f *entities.File) FileResponse {
	return FileResponse{
		ID:               f.ID,
		File:             f.Name,
		Duration:         f.Duration,
		CurrentReference: f.LiveReference(),
		URL:              mediaURL(c.Settings.Media.BaseURL, f.Name),
	}
}

func mediaURL(base, name string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
}

func toConfidences(preds []*entities.Prediction) []ConfidenceResponse {
	out := make([]ConfidenceResponse, 0, len(preds))
	for _, p := range preds {
		out = append(out, ConfidenceResponse{
			Utterance:  p.Utterance,
			Model:      p.ModelID,
			Time:       p.Time,
			Confidence: p.Confidence,
		})
	}
	return out
}

func nonNil(v []ConfidenceResponse) []ConfidenceResponse {
	if v == nil {
		return []ConfidenceResponse{}
	}
	return v
}

func cacheKey(fileID uint, reference string) string {
	return strconv.FormatUint(uint64(fileID), 10) + ":" + reference
}

func parseID(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
