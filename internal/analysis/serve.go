package analysis

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/audiophile/internal/api"
	v1 "github.com/tphakala/audiophile/internal/api/v1"
	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/ingest"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/scheduler"
)

// Serve runs scheduled ingestion passes and the HTTP API until ctx is
// cancelled.
func Serve(ctx context.Context, settings *conf.Settings) error {
	p, err := NewPipeline(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			p.log.Warn("pipeline close failed", logger.Error(err))
		}
	}()

	sched := scheduler.New(settings.Ingest.Interval, passTask(p.Coordinator))

	var server *api.Server
	if settings.WebServer.Enabled {
		var trigger func()
		if settings.Ingest.Enabled {
			trigger = sched.Trigger
		}
		serverOpts := []api.ServerOption{
			api.WithControllerOptions(
				v1.WithDetector(p.Engine),
				v1.WithDriftLog(p.Evaluator),
				v1.WithPassStatus(p.Coordinator, trigger),
			),
		}
		if settings.Metrics.Enabled {
			serverOpts = append(serverOpts, api.WithMetrics(p.Metrics))
		}

		if server, err = api.New(settings, p.Repo, serverOpts...); err != nil {
			return err
		}
		// registered before the first pass so no commit is missed
		p.Events.Add(server.APIController().Subscriber())
		if err := server.Start(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if settings.Ingest.Enabled {
		g.Go(func() error { return sched.Run(gctx) })
	} else {
		p.log.Info("scheduled ingestion disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		if server == nil {
			return nil
		}
		return server.Shutdown()
	})

	return g.Wait()
}

// passTask adapts a coordinator pass to a scheduler task. Overlapping
// requests are reported as skipped runs.
func passTask(c *ingest.Coordinator) scheduler.Task {
	return func(ctx context.Context) error {
		_, err := c.RunPass(ctx)
		if errors.Is(err, ingest.ErrPassInProgress) {
			return scheduler.ErrSkipped
		}
		return err
	}
}
