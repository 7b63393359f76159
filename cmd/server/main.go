package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dermaguide/backend/config"
	httpDelivery "github.com/dermaguide/backend/internal/delivery/http"
	"github.com/dermaguide/backend/internal/domain"
	"github.com/dermaguide/backend/internal/infrastructure/cache"
	"github.com/dermaguide/backend/internal/infrastructure/catalog"
	"github.com/dermaguide/backend/internal/infrastructure/intent"
	"github.com/dermaguide/backend/internal/infrastructure/rulestore"
	"github.com/dermaguide/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting DermaGuide Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	ruleStore, err := rulestore.New(cfg.Database.RulesPath)
	if err != nil {
		log.Fatalf("Failed to open rule store: %v", err)
	}
	defer ruleStore.Close()

	catalogStore, err := catalog.New(cfg.Database.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to open catalog store: %v", err)
	}
	defer catalogStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := rulestore.NewProvider(ruleStore, cfg.Rules.RefreshInterval)
	if err := snapshots.Start(ctx); err != nil {
		log.Fatalf("Failed to load rule snapshot: %v", err)
	}
	log.Printf("Rule snapshot refresh interval: %s", cfg.Rules.RefreshInterval)

	debug := cfg.Pipeline.EnableDebugLogging || cfg.Server.Environment == "development"
	if debug {
		log.Printf("Pipeline debug logging enabled")
	}

	// Initialize usecase layer
	resolver := usecase.NewAliasResolver(debug)
	eligibility := usecase.NewEligibilityEngine(usecase.EligibilityConfig{
		Workers:            cfg.Pipeline.Workers,
		EnableDebugLogging: debug,
	})
	scoring := usecase.NewScoringEngine(
		usecase.ScoringConfig{
			GroupPenaltyCap:    cfg.Rules.GroupPenaltyCap,
			Workers:            cfg.Pipeline.Workers,
			EnableDebugLogging: debug,
		},
		usecase.DefaultGroupTable(),
		usecase.DefaultSeverityTable(),
	)
	ranking := usecase.NewRankingService(intent.NewTagMatcher(), usecase.RankingConfig{
		EnableDebugLogging: debug,
	})

	var resultCache domain.RecommendationCache
	if cfg.Pipeline.CacheTTL > 0 {
		resultCache = cache.New(cfg.Pipeline.CacheTTL)
		log.Printf("Result cache enabled, TTL %s", cfg.Pipeline.CacheTTL)
	}

	recommender := usecase.NewRecommendationService(
		snapshots, catalogStore, resolver, eligibility, scoring, ranking,
		usecase.RecommendationServiceConfig{
			CandidateLimit: cfg.Pipeline.CandidateLimit,
			DefaultTopN:    cfg.Pipeline.DefaultTopN,
			Cache:          resultCache,
		},
	)

	log.Printf("Pipeline: workers=%d, candidates<=%d, timeout=%s",
		cfg.Pipeline.Workers, cfg.Pipeline.CandidateLimit, cfg.Pipeline.RequestTimeout)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(recommender, snapshots, cfg.Pipeline.RequestTimeout)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
