package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/nagarseva/nagarseva/internal/classify"
	"github.com/nagarseva/nagarseva/internal/config"
	"github.com/nagarseva/nagarseva/internal/database"
	"github.com/nagarseva/nagarseva/internal/events"
	"github.com/nagarseva/nagarseva/internal/handlers"
	"github.com/nagarseva/nagarseva/internal/jobs"
	"github.com/nagarseva/nagarseva/internal/lexicon"
	"github.com/nagarseva/nagarseva/internal/middleware"
	"github.com/nagarseva/nagarseva/internal/priority"
	"github.com/nagarseva/nagarseva/internal/spatial"
	"github.com/nagarseva/nagarseva/internal/triage"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Nagarseva complaint triage service...")

	// Load the lexicon (built-in unless a YAML file is configured)
	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		lex, err = lexicon.LoadFile(cfg.LexiconPath)
		if err != nil {
			log.Fatalf("Failed to load lexicon from %s: %v", cfg.LexiconPath, err)
		}
		log.Printf("Lexicon loaded from %s (%d departments)", cfg.LexiconPath, len(lex.Departments()))
	}

	// Initialize database connection
	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	store := database.NewComplaintStore(db)

	// Classification engine, with the external-inference scorer attached
	// when an API key is configured
	classifyOpts := []classify.Option{}
	if cfg.OpenAIAPIKey != "" {
		oracle := classify.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel, lex)
		classifyOpts = append(classifyOpts, classify.WithInference(oracle, cfg.InferenceTimeout))
		log.Printf("External-inference scorer enabled (model: %s)", cfg.OpenAIModel)
	} else {
		log.Println("External-inference scorer disabled (no API key)")
	}
	classifier := classify.NewEngine(lex, classifyOpts...)

	// Priority engine; sensitivity lookup is stubbed until infrastructure
	// data is wired in
	priorities := priority.NewEngine(lex, priority.NoSensitivity{})

	// Spatial index, warmed from open root complaints
	index := spatial.NewIndex(cfg.MergeRadiusMeters)
	roots, err := store.OpenRoots()
	if err != nil {
		log.Fatalf("Failed to load open complaints for index warm-up: %v", err)
	}
	for i := range roots {
		if roots[i].HasLocation {
			index.Insert(roots[i].ID, roots[i].Point(), roots[i].CreatedAt)
		}
	}
	log.Printf("Spatial index warmed with %d open complaints", index.Len())

	// Event publishers
	fanout := events.NewFanout(events.LogPublisher{})
	hub := events.NewHub()
	fanout.Add(hub)
	if cfg.SlackBotToken != "" {
		fanout.Add(events.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel))
		log.Printf("Slack notifications enabled (channel: %s)", cfg.SlackChannel)
	}

	// Triage pipeline
	pipeline := triage.NewPipeline(triage.Config{
		RadiusMeters:          cfg.MergeRadiusMeters,
		TimeWindow:            cfg.MergeTimeWindow,
		SimilarityThreshold:   cfg.SimilarityThreshold,
		MaxGroupSize:          cfg.MaxGroupSize,
		MaxMeanDistanceMeters: cfg.MaxMeanDistanceMeters,
		MaxMeanTimeGap:        cfg.MaxMeanTimeGap,
		MergeRetries:          cfg.MergeRetries,
	}, lex, store, index, classifier, priorities, fanout)

	// Start the spatial index sweeper
	sweeper := jobs.NewIndexSweeper(index, store, cfg.SweepInterval, cfg.IndexMaxAge)
	stopSweeper := make(chan struct{})
	go sweeper.Start(stopSweeper)
	log.Printf("Index sweeper started (interval: %s, horizon: %s)", cfg.SweepInterval, cfg.IndexMaxAge)

	// Set up HTTP server routes
	complaintHandler := handlers.NewComplaintHandler(pipeline, store)
	httpHandler := handlers.NewHTTPHandler(complaintHandler, hub)
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)

	handler := middleware.RequestID(middleware.NewCORS().Wrap(mux))
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("Complaint intake endpoint: http://localhost:%d/api/complaints", cfg.HTTPPort)
	log.Printf("Event stream endpoint: ws://localhost:%d/ws/events", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stopSweeper)

	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
