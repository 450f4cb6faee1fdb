package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proplens/internal/config"
	"proplens/internal/distance"
	"proplens/internal/handler"
	"proplens/internal/persona"
	"proplens/internal/repository"
	"proplens/internal/scraper"
	"proplens/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("PropLens Analysis Engine")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize OpenAI client
	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI)
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
		log.Printf("   - Chat Temperature: %.2f", cfg.OpenAI.ChatTemperature)
		log.Printf("   - Chat TopP: %.2f", cfg.OpenAI.ChatTopP)
		log.Printf("   - Chat MaxTokens: %d", cfg.OpenAI.ChatMaxTokens)
	} else {
		log.Fatalf("OpenAI is disabled - set OPENAI_API_KEY to enable analysis generation")
	}

	// Initialize the analysis audit log (optional)
	var repo *repository.PostgresRepository
	if cfg.PostgreSQL.Enabled {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer repo.Close()
		log.Println("✅ Connected to PostgreSQL database")
	} else {
		log.Println("⚠️  PostgreSQL is not configured - analysis audit log disabled")
	}

	// Initialize services
	personas := persona.NewCatalog()
	composer := service.NewPromptComposer(cfg.Analysis.HistoryTurnBudget, cfg.Analysis.DescriptionExcerptLen)
	analyzer := service.NewAnalyzer(composer, openaiClient, service.NewAnalysisValidator())
	store := service.NewSessionStore(analyzer)

	var auditor *service.AnalysisAuditor
	if repo != nil {
		auditor = service.NewAnalysisAuditor(repo, openaiClient)
	} else {
		auditor = service.NewAnalysisAuditor(nil, openaiClient)
	}

	domainScraper := scraper.NewDomainScraper(&cfg.Scraper)
	distances := distance.NewCalculator(&cfg.Maps)
	if distances.IsEnabled() {
		log.Println("✅ Google Maps distance lookups enabled")
	} else {
		log.Println("⚠️  GOOGLE_MAP_API_KEY not set - distance lookups disabled")
	}

	log.Println("✅ Services initialized")

	// Idle-session eviction sweeper
	sweeper := cron.New()
	ttl := time.Duration(cfg.Analysis.SessionTTLMinutes) * time.Minute
	if _, err := sweeper.AddFunc(cfg.Analysis.SweepSchedule, func() {
		store.EvictIdle(ttl)
	}); err != nil {
		log.Fatalf("Failed to schedule session sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize handlers
	propertyHandler := handler.NewPropertyHandler(domainScraper, distances)
	analysisHandler := handler.NewAnalysisHandler(analyzer, personas, auditor)
	sessionHandler := handler.NewSessionHandler(store, personas, auditor)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "proplens-analysis-engine",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Listing fetch and enrichment
		apiV1.POST("/initialize", propertyHandler.Initialize)

		// Personas
		apiV1.GET("/agents", analysisHandler.Agents)

		// Stateless analysis
		apiV1.POST("/analyze", analysisHandler.Analyze)
		apiV1.POST("/analyze/stream", analysisHandler.AnalyzeStream)

		// Session lifecycle
		apiV1.POST("/sessions", sessionHandler.Create)
		apiV1.POST("/sessions/stream", sessionHandler.CreateStream)
		apiV1.GET("/sessions", sessionHandler.List)
		apiV1.GET("/sessions/:id", sessionHandler.Get)
		apiV1.POST("/sessions/:id/ask", sessionHandler.Ask)
		apiV1.POST("/sessions/:id/ask/stream", sessionHandler.AskStream)
		apiV1.DELETE("/sessions/:id", sessionHandler.Delete)

		// Analysis audit log
		apiV1.GET("/analyses/similar", analysisHandler.SimilarAnalyses)
		apiV1.GET("/analyses/recent", analysisHandler.RecentAnalyses)
	}

	// Serve static files (frontend)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API Documentation: http://localhost:%d/api/v1", cfg.Server.Port)
	log.Printf("🌐 Web UI: http://localhost:%d", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}
