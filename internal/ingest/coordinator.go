// Package ingest runs ingestion passes: scan the media directory, detect
// every keyword in each recording, compare the new confidences with the
// live generation and commit the new generation.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/drift"
	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/generation"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/myaudio"
	"github.com/tphakala/audiophile/internal/notify"
	"github.com/tphakala/audiophile/internal/observability/metrics"
)

// ErrPassInProgress is returned by RunPass while another pass is running.
var ErrPassInProgress = errors.NewStd("ingestion pass already in progress")

// File outcome statuses.
const (
	FileCommitted   = "committed"
	FileDrifted     = "drifted"
	FileQuarantined = "quarantined"
	FileSkipped     = "skipped"
	FileFailed      = "failed"
)

// Config controls a Coordinator.
type Config struct {
	MediaDir   string
	Extensions []string
	Recursive  bool
	Workers    int
	Policy     string // conf.DriftPolicyObserve or conf.DriftPolicyQuarantine
}

// ConfigFromSettings extracts the coordinator config.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		MediaDir:   s.Media.Dir,
		Extensions: s.Audio.Extensions,
		Recursive:  s.Media.Recursive,
		Workers:    s.Ingest.Workers,
		Policy:     s.Drift.Policy,
	}
}

// FileResult is the outcome of one file in a pass.
type FileResult struct {
	Path        string
	FileID      uint
	Name        string
	Duration    int
	Reference   string
	Predictions int
	Drift       drift.Result
	Status      string
	Err         error

	op string // pipeline step that failed
}

// PassSummary aggregates a pass.
type PassSummary struct {
	Files       int
	Committed   int
	Drifted     int
	Quarantined int
	Skipped     int
	Failed      int
	Predictions int
	Duration    time.Duration
	Results     []FileResult
}

func (s *PassSummary) add(r FileResult) {
	s.Files++
	s.Results = append(s.Results, r)
	switch r.Status {
	case FileCommitted:
		s.Committed++
	case FileDrifted:
		s.Committed++
		s.Drifted++
	case FileQuarantined:
		s.Drifted++
		s.Quarantined++
	case FileSkipped:
		s.Skipped++
	case FileFailed:
		s.Failed++
	}
	if r.Status != FileSkipped && r.Status != FileFailed {
		s.Predictions += r.Predictions
	}
}

// Coordinator drives ingestion passes. It is safe for concurrent use;
// at most one pass runs at a time.
type Coordinator struct {
	engine    *detection.Engine
	evaluator *drift.Evaluator
	gen       *generation.Manager
	publisher notify.Publisher
	metrics   *metrics.PipelineMetrics
	locker    Locker
	cfg       Config
	log       logger.Logger

	running atomic.Bool
	state   atomic.Int32

	mu       sync.Mutex
	lastPass *PassSummary
	lastAt   time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher sets the event sink.
func WithPublisher(p notify.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithMetrics sets the pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLocker replaces the in-process file locker.
func WithLocker(l Locker) Option {
	return func(c *Coordinator) { c.locker = l }
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator(engine *detection.Engine, evaluator *drift.Evaluator, gen *generation.Manager, cfg Config, opts ...Option) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Policy == "" {
		cfg.Policy = conf.DriftPolicyObserve
	}
	c := &Coordinator{
		engine:    engine,
		evaluator: evaluator,
		gen:       gen,
		cfg:       cfg,
		locker:    NewLocalLocker(),
		publisher: notify.NewMulti(nil),
		log:       GetLogger().Module("coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state. With several workers it reflects the
// most recent transition of any worker.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Running reports whether a pass is in progress.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// LastPass returns the summary of the last completed pass and when it ended.
func (c *Coordinator) LastPass() (*PassSummary, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPass, c.lastAt
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// RunPass scans the media directory once and processes every recognised
// file. Files that cannot be read are skipped and other per-file errors are
// logged; neither stops the pass. Cancellation is honoured between files.
func (c *Coordinator) RunPass(ctx context.Context) (PassSummary, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordPass(metrics.StatusBusy, 0)
		return PassSummary{}, ErrPassInProgress
	}
	defer c.running.Store(false)
	defer c.setState(StateIdle)

	start := time.Now()
	c.metrics.PassStarted()

	summary, err := c.runPass(ctx)
	summary.Duration = time.Since(start)

	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = metrics.StatusCancelled
	case err != nil:
		status = metrics.StatusError
	}
	c.metrics.RecordPass(status, summary.Duration)

	c.mu.Lock()
	c.lastPass = &summary
	c.lastAt = time.Now()
	c.mu.Unlock()

	c.log.Info("ingestion pass finished",
		logger.String("status", status),
		logger.Int("files", summary.Files),
		logger.Int("committed", summary.Committed),
		logger.Int("drifted", summary.Drifted),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
		logger.Int("predictions", summary.Predictions),
		logger.Duration("duration", summary.Duration))

	c.publish(ctx, &notify.Event{
		Type: notify.EventPassCompleted,
		Pass: &notify.PassInfo{
			Files:       summary.Files,
			Committed:   summary.Committed,
			Skipped:     summary.Skipped,
			Drifted:     summary.Drifted,
			Failed:      summary.Failed,
			Predictions: summary.Predictions,
			Seconds:     summary.Duration.Seconds(),
		},
	})

	return summary, err
}

func (c *Coordinator) runPass(ctx context.Context) (PassSummary, error) {
	var summary PassSummary

	c.setState(StateScanning)
	paths, err := Scan(ctx, c.cfg.MediaDir, c.cfg.Extensions, c.cfg.Recursive)
	if err != nil {
		c.metrics.RecordError(metrics.OpScan, errorType(err))
		return summary, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("operation", "scan").
			Context("media_dir", c.cfg.MediaDir).
			Build()
	}
	c.log.Debug("scan complete", logger.Int("files", len(paths)), logger.String("media_dir", c.cfg.MediaDir))

	if c.cfg.Workers == 1 {
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.add(c.ProcessFile(ctx, path))
		}
		return summary, nil
	}

	results := make([]FileResult, len(paths))
	done := make([]bool, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = c.ProcessFile(ctx, path)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if done[i] {
			summary.add(results[i])
		}
	}
	return summary, ctx.Err()
}

// ProcessFile runs one file through load, detect, evaluate and commit.
// Errors are reported in the result, never returned.
func (c *Coordinator) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res := c.processFile(ctx, path)
	if res.Err != nil {
		c.recordFileError(&res)
	}
	c.metrics.RecordFile(fileMetricStatus(res.Status), time.Since(start))
	return res
}

func (c *Coordinator) processFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path, Name: FileName(path)}
	log := c.log.With(logger.String("path", path))

	c.setState(StateLoading)
	buf, err := c.engine.Load(path)
	if err != nil {
		res.fail(metrics.OpLoad, err)
		if errors.Is(err, myaudio.ErrAudioNotFound) {
			res.Status = FileSkipped
		}
		return res
	}
	res.Duration = buf.Seconds()

	unlock, err := c.locker.Lock(ctx, res.Name+":"+strconv.Itoa(res.Duration))
	if err != nil {
		return res.fail(metrics.OpLock, err)
	}
	defer unlock()

	file, created, err := c.gen.GetOrCreateFile(ctx, res.Name, res.Duration)
	if err != nil {
		return res.fail(metrics.OpCommit, err)
	}
	res.FileID = file.ID
	previous := file.LiveReference()
	if created {
		log.Debug("new file", logger.Int("duration", res.Duration), logger.Uint("file_id", file.ID))
	}

	reference := c.gen.NewReference()
	res.Reference = reference

	c.setState(StateDetecting)
	var drafts []detection.Draft
	for _, keyword := range c.engine.Registry().Keywords() {
		kwDrafts, err := c.engine.DetectBuffer(keyword, buf)
		if err != nil {
			return res.fail(metrics.OpDetect, err)
		}
		drafts = append(drafts, kwDrafts...)
	}
	res.Predictions = len(drafts)

	c.setState(StateEvaluating)
	baseline, err := c.gen.LiveConfidences(ctx, file)
	if err != nil {
		return res.fail(metrics.OpEvaluate, err)
	}
	res.Drift, err = c.evaluator.HasDrifted(baseline, detection.Confidences(drafts))
	if err != nil {
		return res.fail(metrics.OpEvaluate, err)
	}
	if !res.Drift.Skipped() {
		c.metrics.RecordDriftTest(res.Drift.PValue, res.Drift.Drifted)
	}

	quarantine := res.Drift.Drifted && c.cfg.Policy == conf.DriftPolicyQuarantine

	c.setState(StateCommitting)
	if quarantine {
		err = c.gen.Stage(ctx, file, reference, drafts)
	} else {
		err = c.gen.Commit(ctx, file, reference, drafts)
	}
	if err != nil {
		return res.fail(metrics.OpCommit, err)
	}
	c.metrics.RecordPredictions(len(drafts))

	switch {
	case quarantine:
		res.Status = FileQuarantined
	case res.Drift.Drifted:
		res.Status = FileDrifted
	default:
		res.Status = FileCommitted
	}

	if res.Drift.Drifted {
		c.evaluator.Record(drift.Batch{
			FileID:      file.ID,
			FileName:    file.Name,
			Reference:   reference,
			Result:      res.Drift,
			Predictions: drafts,
			Promoted:    !quarantine,
		})
		log.Warn("confidence drift detected",
			logger.String("reference", reference),
			logger.String("live_reference", previous),
			logger.Float64("statistic", res.Drift.Statistic),
			logger.Float64("p_value", res.Drift.PValue),
			logger.String("policy", c.cfg.Policy))
		c.publish(ctx, c.fileEvent(notify.EventDriftDetected, file, previous, &res))
	}

	evType := notify.EventGenerationCommitted
	if quarantine {
		evType = notify.EventGenerationQuarantined
	}
	c.publish(ctx, c.fileEvent(evType, file, previous, &res))

	log.Debug("file processed",
		logger.String("status", res.Status),
		logger.String("reference", reference),
		logger.Int("predictions", res.Predictions))
	return res
}

func (c *Coordinator) fileEvent(t notify.EventType, file *entities.File, previous string, res *FileResult) *notify.Event {
	return &notify.Event{
		Type:              t,
		FileID:            file.ID,
		FileName:          file.Name,
		Duration:          file.Duration,
		Reference:         res.Reference,
		PreviousReference: previous,
		Predictions:       res.Predictions,
		Statistic:         res.Drift.Statistic,
		PValue:            res.Drift.PValue,
		Policy:            c.cfg.Policy,
	}
}

// publish delivers ev; failures are logged by the sinks and never fail a pass.
func (c *Coordinator) publish(ctx context.Context, ev *notify.Event) {
	if err := c.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		c.metrics.RecordError(metrics.OpPublish, errorType(err))
	}
}

func (r *FileResult) fail(op string, err error) FileResult {
	r.Status, r.Err, r.op = FileFailed, err, op
	return *r
}

func (c *Coordinator) recordFileError(res *FileResult) {
	c.metrics.RecordError(res.op, errorType(res.Err))

	fields := []logger.Field{
		logger.String("path", res.Path),
		logger.String("status", res.Status),
		logger.Error(res.Err),
	}
	if res.Status == FileSkipped {
		c.log.Warn("skipping unreadable audio file", fields...)
		return
	}
	c.log.Error("failed to process file", fields...)
}

func fileMetricStatus(status string) string {
	switch status {
	case FileCommitted:
		return metrics.StatusSuccess
	case FileDrifted:
		return metrics.StatusDrifted
	case FileQuarantined:
		return metrics.StatusQuarantined
	case FileSkipped:
		return metrics.StatusSkipped
	}
	return metrics.StatusError
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return string(errors.CategoryCancellation)
	}
	return string(errors.CategoryGeneric)
}

// String renders a one line summary.
func (s PassSummary) String() string {
	return fmt.Sprintf("files=%d committed=%d drifted=%d quarantined=%d skipped=%d failed=%d predictions=%d duration=%s",
		s.Files, s.Committed, s.Drifted, s.Quarantined, s.Skipped, s.Failed, s.Predictions, s.Duration.Round(time.Millisecond))
}
