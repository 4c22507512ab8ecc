package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/y0sshi/conveyor/internal/cachestore"
	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/fsutil"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
	cache  *cachestore.Store
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and the loaded
// manifest model. Loaders are tried by file extension; at least one must be
// provided.
func NewApp(outW io.Writer, appConfig *Config, loaders ...config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(loaders) == 0 {
		panic(fmt.Errorf("no manifest loaders provided"))
	}

	model, err := loadModel(ctx, appConfig.ManifestPath, loaders)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Manifests loaded and translated into unified model.", "pipelines", len(model.Pipelines))

	if err := model.Validate(); err != nil {
		panic(fmt.Errorf("invalid pipeline configuration: %w", err))
	}
	logger.Debug("Model validation passed.")

	var cache *cachestore.Store
	if appConfig.CacheDir != "" {
		cache = cachestore.New(appConfig.CacheDir)
		logger.Debug("Artifact cache enabled.", "dir", appConfig.CacheDir)
	} else {
		logger.Debug("Artifact cache disabled.")
	}

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
		cache:  cache,
	}
}

// Model returns the loaded manifest model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// loadModel discovers manifest files under path, routes each to the loader
// claiming its extension, and merges the resulting models.
func loadModel(ctx context.Context, path string, loaders []config.Loader) (*config.Model, error) {
	var allExts []string
	for _, l := range loaders {
		allExts = append(allExts, l.Extensions()...)
	}

	files, err := fsutil.FindFilesByExtensions(path, allExts...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no manifest files found under %s", path)
	}

	byLoader := make(map[config.Loader][]string)
	for _, file := range files {
		loader := loaderFor(file, loaders)
		if loader == nil {
			return nil, fmt.Errorf("unsupported manifest extension: %s", file)
		}
		byLoader[loader] = append(byLoader[loader], file)
	}

	merged := &config.Model{}
	// Iterate loaders in their declared order so merging stays deterministic.
	for _, loader := range loaders {
		group, ok := byLoader[loader]
		if !ok {
			continue
		}
		model, err := loader.Load(ctx, group...)
		if err != nil {
			return nil, err
		}
		merged.Pipelines = append(merged.Pipelines, model.Pipelines...)
	}
	return merged, nil
}

// loaderFor returns the loader claiming the file's extension, or nil.
func loaderFor(file string, loaders []config.Loader) config.Loader {
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			if strings.HasSuffix(file, ext) {
				return l
			}
		}
	}
	return nil
}
