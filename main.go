package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"immcad-api/config"
	"immcad-api/internal/cache"
	"immcad-api/internal/caselaw"
	"immcad-api/internal/chat"
	"immcad-api/internal/grounding"
	"immcad-api/internal/httpapi"
	"immcad-api/internal/ingestion"
	"immcad-api/internal/logger"
	"immcad-api/internal/metrics"
	"immcad-api/internal/providers"
	"immcad-api/internal/ratelimit"
	"immcad-api/internal/resilience"
	"immcad-api/internal/sources"
	"immcad-api/internal/workerpool"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	appLogger := logger.Init()

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		slog.ErrorContext(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"primary_provider", cfg.PrimaryProvider,
		"enable_case_search", cfg.EnableCaseSearch)

	registry, err := sources.LoadRegistry(cfg.SourceRegistryPath)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load source registry", "error", err)
		os.Exit(1)
	}
	policy, err := sources.LoadPolicy(cfg.SourcePolicyPath)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load source policy", "error", err)
		os.Exit(1)
	}
	fetchPolicy, err := ingestion.LoadFetchPolicy(cfg.FetchPolicyPath, cfg.RequestTimeout.Seconds())
	if err != nil {
		slog.ErrorContext(ctx, "failed to load fetch policy", "error", err)
		os.Exit(1)
	}

	checkpoints := ingestion.NewCheckpointStore(cfg.IngestionCheckpointStatePath, appLogger)

	ingestionEngine := &ingestion.Engine{
		Registry:    registry,
		Policy:      policy,
		FetchPolicy: fetchPolicy,
		Checkpoints: checkpoints,
		Environment: cfg.Environment,
		HTTPClient:  &http.Client{Timeout: cfg.RequestTimeout},
		Logger:      appLogger,
	}
	startIngestionScheduler(ctx, ingestionEngine, appLogger)

	pool := workerpool.New(8, 32)
	defer pool.Close()

	providerList := buildProviders(cfg)
	router, err := providers.NewRouter(
		providerList,
		cfg.PrimaryProvider,
		resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.ProviderCircuitBreakerFailureThreshold,
			OpenWindow:       time.Duration(cfg.ProviderCircuitBreakerOpenSeconds) * time.Second,
		},
		providers.NewTelemetry(),
		pool,
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build provider router", "error", err)
		os.Exit(1)
	}

	chatService := &chat.Service{
		Grounding: grounding.NewKeywordAdapter(grounding.OfficialGroundingCatalog(), 3),
		Router:    router,
		Audit:     logger.Audit(),
	}

	searchService := buildSearchService(cfg, registry)

	limiter := ratelimit.BuildLimiter(cfg.RedisURL, "immcad:ratelimit", cfg.RateLimitPerMinute, appLogger)

	bearerToken, err := cfg.LoadAPIBearerToken()
	if err != nil && cfg.IsProduction() {
		slog.ErrorContext(ctx, "failed to load api bearer token", "error", err)
		os.Exit(1)
	}

	httpServer := &httpapi.Server{
		Chat:            chatService,
		Search:          searchService,
		SearchCache:     cache.NewResponseCache(512),
		SearchCacheCfg:  cache.NewSearchCacheConfig(),
		Registry:        registry,
		Policy:          policy,
		Checkpoints:     checkpoints,
		Limiter:         limiter,
		Metrics:         metrics.New(0),
		Logger:          appLogger,
		Audit:           logger.Audit(),
		BearerToken:     bearerToken,
		Environment:     cfg.Environment,
		ExportGateOn:    cfg.ExportPolicyGateEnabled,
		DocRequireHTTPS: cfg.DocumentRequireHTTPS,
		CaseSearchOn:    cfg.EnableCaseSearch,
		HTTPClient:      &http.Client{Timeout: cfg.RequestTimeout},
	}

	address := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         address,
		Handler:      httpServer.NewMux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "starting immcad-api server", "address", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.InfoContext(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := checkpoints.Flush(); err != nil {
		slog.ErrorContext(ctx, "failed to flush ingestion checkpoints on shutdown", "error", err)
	}

	slog.InfoContext(ctx, "server exited properly")
}

// buildProviders assembles the provider routing order: OpenAI, then
// Gemini, then (only outside production, and only when explicitly
// enabled) the deterministic scaffold provider as a last resort. If no
// provider is configured at all, the scaffold provider is used on its own,
// whatever the environment and flag.
func buildProviders(cfg *config.Config) []providers.Provider {
	var providerList []providers.Provider

	if openaiKey, err := cfg.LoadOpenAIAPIKey(); err == nil {
		providerList = append(providerList, &providers.OpenAIProvider{
			APIKey:     openaiKey,
			Model:      "gpt-4o-mini",
			Timeout:    cfg.RequestTimeout,
			MaxRetries: 2,
		})
	}
	if geminiKey, err := cfg.LoadGeminiAPIKey(); err == nil {
		providerList = append(providerList, &providers.GeminiProvider{
			APIKey:     geminiKey,
			Model:      cfg.GeminiModel,
			Timeout:    cfg.RequestTimeout,
			MaxRetries: 2,
		})
	}
	if cfg.EnableScaffoldProvider {
		providerList = append(providerList, providers.ScaffoldProvider{})
	}
	if len(providerList) == 0 {
		providerList = append(providerList, providers.ScaffoldProvider{})
	}

	return providerList
}

// buildSearchService wires the official case-law client (when enabled)
// ahead of the licensed CanLII fallback.
func buildSearchService(cfg *config.Config, registry *sources.Registry) *caselaw.SearchService {
	feedURLs := map[string]string{}
	for _, entry := range registry.AllSources() {
		if entry.SourceType == sources.SourceTypeCaseLaw {
			feedURLs[entry.SourceID] = entry.URL
		}
	}

	svc := &caselaw.SearchService{
		Fallback: &caselaw.CanLIIClient{
			APIKey:  os.Getenv("CANLII_API_KEY"),
			Timeout: cfg.RequestTimeout,
		},
	}
	if cfg.EnableOfficialCaseSources {
		svc.Official = &caselaw.OfficialClient{
			FeedURLs:   feedURLs,
			HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
			Timeout:    cfg.RequestTimeout,
		}
	}
	return svc
}

// startIngestionScheduler runs one ingestion pass immediately, then every
// 6 hours, in the background for the lifetime of the process.
func startIngestionScheduler(ctx context.Context, engine *ingestion.Engine, appLogger *slog.Logger) {
	run := func() {
		report := engine.Run(ctx, "", nil)
		appLogger.Info("ingestion run complete", "total", report.Total, "counts", report.Counts)
		if err := engine.Checkpoints.Flush(); err != nil {
			appLogger.Warn("failed to flush ingestion checkpoints", "error", err)
		}
	}

	go func() {
		run()
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			run()
		}
	}()
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/healthz", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}

	return nil
}
