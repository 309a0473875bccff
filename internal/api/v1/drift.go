package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/audiophile/internal/ingest"
)

// DriftResponse is one retained drifted batch.
type DriftResponse struct {
	FileID      uint                 `json:"file_id"`
	File        string               `json:"file"`
	Reference   string               `json:"reference"`
	Statistic   float64              `json:"statistic"`
	PValue      float64              `json:"p_value"`
	Baseline    int                  `json:"baseline_size"`
	Candidate   int                  `json:"candidate_size"`
	Promoted    bool                 `json:"promoted"`
	DetectedAt  time.Time            `json:"detected_at"`
	Predictions []ConfidenceResponse `json:"predictions"`
}

// PassResponse summarises an ingestion pass.
type PassResponse struct {
	Files       int       `json:"files"`
	Committed   int       `json:"committed"`
	Drifted     int       `json:"drifted"`
	Quarantined int       `json:"quarantined"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Predictions int       `json:"predictions"`
	Seconds     float64   `json:"seconds"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ListDrift handles GET /drift, newest batch first.
func (c *Controller) ListDrift(ctx echo.Context) error {
	batches := c.driftLog.Drifted()
	out := make([]DriftResponse, 0, len(batches))
	for i := len(batches) - 1; i >= 0; i-- {
		b := batches[i]
		preds := make([]ConfidenceResponse, 0, len(b.Predictions))
		for _, d := range b.Predictions {
			preds = append(preds, ConfidenceResponse{
				Utterance:  d.Utterance,
				Model:      d.ModelID,
				Time:       d.Time,
				Confidence: d.Confidence,
			})
		}
		out = append(out, DriftResponse{
			FileID:      b.FileID,
			File:        b.FileName,
			Reference:   b.Reference,
			Statistic:   b.Result.Statistic,
			PValue:      b.Result.PValue,
			Baseline:    b.Result.BaselineSize,
			Candidate:   b.Result.CandidateSize,
			Promoted:    b.Promoted,
			DetectedAt:  b.DetectedAt,
			Predictions: preds,
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

// TriggerPass handles POST /passes. The pass runs asynchronously; a pass
// already in flight absorbs the request.
func (c *Controller) TriggerPass(ctx echo.Context) error {
	c.trigger()
	resp := map[string]any{"accepted": true}
	if c.status != nil {
		resp["running"] = c.status.Running()
	}
	return ctx.JSON(http.StatusAccepted, resp)
}

func newPassResponse(s *ingest.PassSummary, at time.Time) PassResponse {
	return PassResponse{
		Files:       s.Files,
		Committed:   s.Committed,
		Drifted:     s.Drifted,
		Quarantined: s.Quarantined,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Predictions: s.Predictions,
		Seconds:     s.Duration.Seconds(),
		FinishedAt:  at,
	}
}
