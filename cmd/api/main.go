package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"diagramgen/internal/conductor"
	"diagramgen/internal/constraints"
	"diagramgen/internal/domain"
	"diagramgen/internal/http/handlers"
	httpapi "diagramgen/internal/http/httpapi"
	"diagramgen/internal/infra"
	"diagramgen/internal/jobs"
	"diagramgen/internal/metadata"
	"diagramgen/internal/providers/classify"
	"diagramgen/internal/providers/render"
	"diagramgen/internal/routing"
	"diagramgen/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Metadata sink: Postgres when configured, no-op otherwise.
	var sink metadata.Sink = metadata.NopSink{}
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		sink = metadata.NewPGSink(dbpool)
	}

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare artifact storage")
	}

	catalog := domain.DefaultCatalog()
	selectorCfg := routing.DefaultConfig()
	selectorCfg.MinConfidence = cfg.RouterMinConfidence
	selector := routing.NewSelector(catalog, selectorCfg)
	resolver := constraints.NewResolver(catalog)

	// Classifier is optional; routing falls back to heuristics without it.
	var classifier routing.Classifier
	if cfg.GeminiAPIKey != "" {
		gc, err := classify.NewGeminiClassifier(classify.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.ClassifierTimeout,
			Catalog: catalog,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build classifier")
		}
		classifier = gc
	}

	mermaid, err := render.NewMarkupRenderer(render.MarkupRendererOptions{BaseURL: cfg.MermaidServiceURL})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build mermaid renderer")
	}
	chart, err := render.NewChartRenderer(render.ChartRendererOptions{BaseURL: cfg.ChartServiceURL})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build chart renderer")
	}
	renderers := map[domain.GenerationMethod]render.Renderer{
		domain.MethodSVGTemplate: render.NewTemplateRenderer(),
		domain.MethodMermaid:     mermaid,
		domain.MethodPythonChart: chart,
	}

	jobStore := jobs.NewStore()
	cond, err := conductor.New(conductor.Options{
		Store:      jobStore,
		Selector:   selector,
		Resolver:   resolver,
		Classifier: classifier,
		Renderers:  renderers,
		Storage:    store,
		Sink:       sink,
		Logger:     logger,

		Concurrency: cfg.WorkerConcurrency,
		RenderTimeouts: map[domain.GenerationMethod]time.Duration{
			domain.MethodSVGTemplate: cfg.RenderTimeoutSVG,
			domain.MethodMermaid:     cfg.RenderTimeoutMermaid,
			domain.MethodPythonChart: cfg.RenderTimeoutChart,
		},
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build conductor")
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := jobs.NewSweeper(jobStore, cfg.JobRetention, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	app := handlers.NewApp(logger, cond, jobStore, catalog)
	router := httpapi.NewRouter(app, httpapi.Options{
		StaticDir:       store.BasePath(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	stopSweeper()
	cond.Wait()
	logger.Info().Msg("server stopped")
}
