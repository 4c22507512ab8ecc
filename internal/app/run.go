package app

import (
	"context"
	"fmt"

	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/dag"
	"github.com/y0sshi/conveyor/internal/executor"
	"github.com/y0sshi/conveyor/internal/server"
	"github.com/y0sshi/conveyor/internal/trigger"
)

// Run executes the main application logic based on the provided configuration:
// webhook serving when a listen address is configured, otherwise a single
// run for the event described by the flags.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.Listen != "" {
		srv := server.New(a.logger, appConfig.Listen, func(runCtx context.Context, ev trigger.Event) error {
			return a.RunEvent(ctxlog.WithLogger(runCtx, a.logger), ev, appConfig)
		})
		return srv.ListenAndServe(ctx)
	}

	ev := trigger.Event{Kind: trigger.EventKind(appConfig.Event), Branch: appConfig.Branch}
	return a.RunEvent(ctx, ev, appConfig)
}

// RunEvent runs every pipeline whose trigger rules match the event. The
// trigger predicate is evaluated once per pipeline, before any graph is
// built.
func (a *App) RunEvent(ctx context.Context, ev trigger.Event, appConfig *Config) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dispatching event.", "event", ev.Kind, "branch", ev.Branch)

	matched := 0
	for _, p := range a.model.Pipelines {
		if !p.Trigger.Match(ev) {
			logger.Info("Pipeline not activated by event, skipping.", "pipeline", p.Name, "event", ev.Kind, "branch", ev.Branch)
			continue
		}
		matched++
		if err := a.runPipeline(ctx, p, appConfig); err != nil {
			return err
		}
	}

	if matched == 0 {
		logger.Warn("No pipeline matched the event.", "event", ev.Kind, "branch", ev.Branch)
	}
	return nil
}

// runPipeline builds the job graph for one pipeline and executes it.
func (a *App) runPipeline(ctx context.Context, p *config.Pipeline, appConfig *Config) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting pipeline", "pipeline", p.Name, "jobs", len(p.Jobs))

	graph, err := dag.Build(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	order, err := graph.TopoOrder()
	if err != nil {
		return err
	}
	logger.Debug("Resolved dependency order.", "order", order)

	exec := executor.New(graph, executor.Options{
		Workers:     appConfig.WorkerCount,
		WorkDir:     appConfig.WorkDir,
		Cache:       a.cache,
		PipelineEnv: p.Env,
	})

	result, runErr := exec.Run(ctx)
	for _, jr := range result.Jobs {
		logger.Info("Job result.", "job", jr.Job, "state", jr.State.String(), "duration", jr.Duration)
	}
	if runErr != nil {
		return fmt.Errorf("pipeline %q: %w", p.Name, runErr)
	}

	logger.Info("🏁 Pipeline finished", "pipeline", p.Name)
	return nil
}
