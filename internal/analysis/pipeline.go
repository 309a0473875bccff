// Package analysis assembles the ingestion pipeline from settings and runs
// it in one of the command modes: serve, single pass, single-file detect.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/drift"
	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/generation"
	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/ingest"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/myaudio"
	"github.com/tphakala/audiophile/internal/notify"
	"github.com/tphakala/audiophile/internal/observability"
)

const (
	notificationTimeout = 10 * time.Second
	lockPrefix          = "audiophile:lock:"
)

// Pipeline holds every long-lived component built from settings.
type Pipeline struct {
	Settings    *conf.Settings
	Metrics     *observability.Metrics
	Store       datastore.Manager
	Repo        repository.Repository
	Engine      *detection.Engine
	Evaluator   *drift.Evaluator
	Generations *generation.Manager
	Events      *notify.Multi
	Coordinator *ingest.Coordinator

	redis *redis.Client
	log   logger.Logger
}

// Option customises NewPipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	registry *inference.Registry
	sinks    bool
}

// WithRegistry replaces the registry built from detection settings.
func WithRegistry(r *inference.Registry) Option {
	return func(o *pipelineOptions) { o.registry = r }
}

// WithoutSinks skips MQTT, Redis and shoutrrr setup. Used by one-shot
// commands that should not announce anything.
func WithoutSinks() Option {
	return func(o *pipelineOptions) { o.sinks = false }
}

// NewPipeline opens the datastore and builds the pipeline. The caller must
// Close it.
func NewPipeline(ctx context.Context, settings *conf.Settings, opts ...Option) (p *Pipeline, err error) {
	o := pipelineOptions{sinks: true}
	for _, opt := range opts {
		opt(&o)
	}

	p = &Pipeline{Settings: settings, log: GetLogger()}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	if p.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, err
	}

	registry := o.registry
	if registry == nil {
		if registry, err = inference.FromSettings(&settings.Detection); err != nil {
			return nil, err
		}
	}

	loader := myaudio.NewLoader(myaudio.ResampleMethod(settings.Audio.Resampler))
	p.Engine, err = detection.NewEngine(loader, registry, detection.Config{
		SampleRate:   settings.Audio.SampleRate,
		WindowLength: settings.Audio.WindowLength,
		Stride:       settings.Audio.Stride,
		Threshold:    settings.Detection.Threshold,
	})
	if err != nil {
		return nil, err
	}

	if p.Evaluator, err = drift.NewEvaluator(settings.Drift.Significance, settings.Drift.Retain); err != nil {
		return nil, err
	}

	if p.Store, err = datastore.Open(&settings.Output); err != nil {
		return nil, err
	}
	p.Repo = datastore.NewRepository(p.Store)
	p.Generations = generation.NewManager(p.Repo)

	if (o.sinks && settings.Redis.Enabled) || settings.Ingest.Lock == conf.LockRedis {
		if p.redis, err = notify.NewRedisClient(ctx, settings.Redis.URL); err != nil {
			return nil, err
		}
	}

	p.Events = notify.NewMulti(p.Metrics.Notify)
	if o.sinks {
		if err = p.connectSinks(ctx); err != nil {
			return nil, err
		}
	}

	coordOpts := []ingest.Option{
		ingest.WithPublisher(p.Events),
		ingest.WithMetrics(p.Metrics.Pipeline),
	}
	if settings.Ingest.Lock == conf.LockRedis {
		coordOpts = append(coordOpts, ingest.WithLocker(ingest.NewRedisLocker(p.redis, lockPrefix, settings.Ingest.LockTTL)))
	}
	p.Coordinator = ingest.NewCoordinator(p.Engine, p.Evaluator, p.Generations, ingest.ConfigFromSettings(settings), coordOpts...)

	p.log.Info("pipeline ready",
		logger.String("database", p.Store.Dialect()),
		logger.Any("keywords", registry.Keywords()),
		logger.Int("sample_rate", settings.Audio.SampleRate),
		logger.Int("window", settings.Audio.WindowLength),
		logger.Int("stride", settings.Audio.Stride),
		logger.Float64("threshold", settings.Detection.Threshold),
		logger.String("drift_policy", settings.Drift.Policy),
		logger.Int("sinks", p.Events.Len()))
	return p, nil
}

// connectSinks adds the enabled event sinks. An unreachable MQTT broker is
// logged and skipped; the pipeline runs without it.
func (p *Pipeline) connectSinks(ctx context.Context) error {
	s := p.Settings

	if s.MQTT.Enabled {
		client := notify.NewMQTTPublisher(notify.MQTTConfigFromSettings(s), p.Metrics.Notify)
		if err := client.Connect(ctx); err != nil {
			p.log.Warn("MQTT broker unavailable, events will not be published there",
				logger.String("broker", s.MQTT.Broker),
				logger.Error(err))
		} else {
			p.Events.Add(client)
		}
	}

	if s.Redis.Enabled {
		p.Events.Add(notify.NewRedisPublisher(p.redis, s.Redis.Channel, false, p.Metrics.Notify))
	}

	if s.Notification.Enabled {
		n, err := notify.NewShoutrrrNotifier(s.Notification.URLs, s.Notification.Title, notificationTimeout)
		if err != nil {
			return fmt.Errorf("notification setup: %w", err)
		}
		p.Events.Add(n)
	}
	return nil
}

// Close releases sinks, the Redis client and the database.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Events != nil {
		if err := p.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Store != nil {
		if err := p.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
