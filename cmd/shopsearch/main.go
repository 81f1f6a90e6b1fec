package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/shopsearch/internal/config"
	dbRedis "github.com/kailas-cloud/shopsearch/internal/db/redis"
	"github.com/kailas-cloud/shopsearch/internal/domain/promotion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/diversity"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/shopsearch/internal/repository/budget"
	"github.com/kailas-cloud/shopsearch/internal/repository/catalog"
	"github.com/kailas-cloud/shopsearch/internal/repository/interpcache"
	promorepo "github.com/kailas-cloud/shopsearch/internal/repository/promotion"
	chiTransport "github.com/kailas-cloud/shopsearch/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/shopsearch/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/shopsearch/internal/usecase/budget"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	interpretuc "github.com/kailas-cloud/shopsearch/internal/usecase/interpret"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/shopsearch/internal/usecase/usage"
	"github.com/kailas-cloud/shopsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shopsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterSearchMetrics()

	prefix := cfg.Storage.KeyPrefix

	catalogRepo := catalog.New(store, prefix)
	if cfg.Search.EnsureIndex {
		if err := catalogRepo.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure catalog index", zap.String("index", catalogRepo.IndexName()), zap.Error(err))
		}
	}

	cache, writer := buildCache(cfg.Cache, store, prefix, logger)
	if writer != nil {
		defer writer.Close()
	}

	interpreter, completer, tracker := buildInterpreter(ctx, cfg.LLM, cache, store, prefix, logger)
	if tracker != nil {
		defer tracker.Close()
	}

	searchSvc := searchuc.New(interpreter, catalogRepo).WithOptions(searchuc.Options{
		FetchMultiplier: cfg.Search.FetchMultiplier,
		MaxTermGroups:   cfg.Search.MaxTermGroups,
		Diversity: diversity.Policy{
			Cap:                cfg.Search.MerchantCap,
			MinResults:         cfg.Search.MinResults,
			DiversityThreshold: cfg.Search.DiversityThreshold,
			RelaxSteps:         cfg.Search.RelaxSteps,
		},
	})
	if cfg.Promotions.Enabled {
		searchSvc.WithPromotions(promorepo.New(store, prefix, logger), promotion.NewMatcher(time.Now))
	}

	// Pass nil interface (not typed nil pointer!) for disabled collaborators.
	var budgetReader usageuc.BudgetReader
	if tracker != nil {
		budgetReader = tracker
	}
	usageSvc := usageuc.New(budgetReader)

	var llmChecker healthuc.LLMChecker
	if completer != nil {
		llmChecker = completer
	}
	healthSvc := healthuc.New(store, llmChecker)

	server := chiTransport.NewServer(searchSvc, usageSvc, healthSvc, logger)
	r := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCache assembles the in-process tier and, if enabled, the Redis tier
// with its write-behind queue.
func buildCache(
	cfg config.CacheConfig, store *dbRedis.Store, prefix string, logger *zap.Logger,
) (*interpcache.Cache, *interpcache.Writer) {
	memory := interpcache.NewMemory(cfg.TTL(), cfg.MaxEntries, cfg.EvictFraction, cfg.Version)
	cache := interpcache.New(memory, logger)
	if !cfg.Persistent.Enabled {
		return cache, nil
	}

	p := cfg.Persistent
	writer := interpcache.NewWriter(p.QueueSize, p.Workers, time.Duration(p.WriteTimeoutMs)*time.Millisecond, logger)
	cache.WithPersistent(
		interpcache.NewRedis(store, prefix, cfg.TTL()),
		writer,
		time.Duration(p.ReadTimeoutMs)*time.Millisecond,
	)
	logger.Info("Persistent interpretation cache enabled",
		zap.Int("queue_size", p.QueueSize),
		zap.Int("workers", p.Workers),
	)
	return cache, writer
}

// buildInterpreter wires the LLM completer, token budget and admission
// limiter. With no API key the interpreter runs on fast path, cache and the
// rule-based expander only.
func buildInterpreter(
	ctx context.Context,
	cfg config.LLMConfig,
	cache *interpcache.Cache,
	store *dbRedis.Store,
	prefix string,
	logger *zap.Logger,
) (*interpretuc.Service, *openaiLLM.Completer, *budgetuc.Tracker) {
	if !cfg.Enabled() {
		logger.Warn("LLM api key not set, interpretation uses the rule-based fallback")
		return interpretuc.New(nil, cache, cfg.Model, cfg.Timeout(), logger), nil, nil
	}

	completer := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		JSONMode:    cfg.JSONMode,
		Logger:      logger,
	})
	svc := interpretuc.New(completer, cache, cfg.Model, cfg.Timeout(), logger)

	if cfg.RateLimitRPS > 0 {
		svc.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst))
	}

	var tracker *budgetuc.Tracker
	if cfg.Budget.Enabled() {
		action := budgetuc.ActionWarn
		if cfg.Budget.Action == "reject" {
			action = budgetuc.ActionReject
		}
		tracker = budgetuc.NewTracker(
			cfg.Provider, prefix, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store: loads current counters from DB.
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		svc.WithBudget(tracker)
	}

	logger.Info("LLM interpreter configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout()),
		zap.Bool("budget", tracker != nil),
		zap.Float64("rate_limit_rps", cfg.RateLimitRPS),
	)
	return svc, completer, tracker
}
