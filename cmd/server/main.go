package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/vantageintel/vantage-web-ui/internal/handlers"
	"github.com/vantageintel/vantage-web-ui/internal/metrics"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/services"
	"github.com/vantageintel/vantage-web-ui/internal/stats"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
	"gopkg.in/yaml.v3"
)

func main() {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	cfgPath := filepath.Join(cfgDir, "/vantagewebui")
	if err := os.MkdirAll(cfgPath, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfgFilePath := filepath.Join(cfgDir, "/vantagewebui/config.yaml")
	cfgFile, err := os.Open(cfgFilePath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening config file: %w", err))
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		panic(fmt.Errorf("error decoding config file: %w", err))
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	llm, err := cfg.LLM.llm(cfg.SystemPrompt, logger)
	if err != nil {
		panic(err)
	}
	generator, err := cfg.LLM.generator(cfg.SystemPrompt, logger)
	if err != nil {
		panic(err)
	}

	dbPath := filepath.Join(cfgDir, "/vantagewebui/articles.db")
	boltDB, err := services.NewBoltDB(dbPath)
	if err != nil {
		panic(err)
	}
	if err := boltDB.Seed(context.Background(), seedArticles()); err != nil {
		panic(err)
	}

	mtr := metrics.New()

	// The assembler and the stats client consume our own listener unless the
	// generation tier was split out to another base URL
	generatorBaseURL := cfg.GeneratorBaseURL
	if generatorBaseURL == "" {
		generatorBaseURL = "http://127.0.0.1:" + cfg.Port
	}
	statsBaseURL := cfg.StatsBaseURL
	if statsBaseURL == "" {
		statsBaseURL = "http://127.0.0.1:" + cfg.Port
	}

	gen := handlers.NewGeneration(llm, generator, boltDB, logger)
	m := handlers.NewMain(
		services.NewConversationStore(),
		boltDB,
		stats.NewClient(statsBaseURL, 0),
		stats.NewLimiter(cfg.StatsRPS, cfg.StatsBurst),
		stream.NewClient(generatorBaseURL, mtr),
		cfg.Targets,
		logger,
	)

	// Create custom mux
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate/chat", gen.HandleGenerateChat)
	mux.HandleFunc("POST /api/generate/perspectives", gen.HandleGeneratePerspectives)
	mux.HandleFunc("POST /api/chats", m.HandleChats)
	mux.HandleFunc("DELETE /api/chats/{id}", m.HandleDeleteChat)
	mux.HandleFunc("GET /api/chats/{id}/messages", m.HandleConversationMessages)
	mux.HandleFunc("GET /api/articles", m.HandleArticles)
	mux.HandleFunc("POST /api/articles", m.HandleAddArticle)
	mux.HandleFunc("GET /api/articles/{id}", m.HandleArticle)
	mux.HandleFunc("POST /api/articles/{id}/perspectives", m.HandlePerspectives)
	mux.HandleFunc("POST /api/articles/{id}/perspectives/all", m.HandlePerspectivesAll)
	mux.HandleFunc("GET /api/articles/{id}/analysis", m.HandleAnalysis)
	mux.HandleFunc("GET /api/stats", m.HandleStats)
	mux.HandleFunc("GET /api/overview", m.HandleOverview)
	mux.HandleFunc("GET /sse", m.HandleSSE)
	mux.Handle("GET /metrics", mtr.Handler())

	// Create custom server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown sse server: %v", err)
		}
		if err := boltDB.Close(); err != nil {
			log.Printf("Failed to close article store: %v", err)
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Println("Server starting on :" + cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking select waiting for either interrupt or server error
	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Start shutdown, signal: %v", sig)

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("Forcing server close: %v", err)
			}
		}
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// seedArticles fills a fresh catalog so the dashboard has something to browse
// and analyze before any articles are posted.
func seedArticles() []models.Article {
	now := time.Now()
	return []models.Article{
		{
			ID:          uuid.New().String(),
			Title:       "Senate Advances Bipartisan Infrastructure Package After Marathon Session",
			Description: "A late-night vote moved the bridge and transit funding bill past its last procedural hurdle, setting up final passage next week.",
			Source:      "Capitol Wire",
			Category:    "politics",
			URL:         "https://example.com/articles/senate-infrastructure-package",
			PublishedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:          uuid.New().String(),
			Title:       "Central Bank Holds Rates Steady as Inflation Cools to Two-Year Low",
			Description: "Policymakers left the benchmark rate unchanged and signaled patience, citing softer price data across housing and energy.",
			Source:      "Market Dispatch",
			Category:    "economy",
			URL:         "https://example.com/articles/central-bank-holds-rates",
			PublishedAt: now.Add(-5 * time.Hour),
		},
		{
			ID:          uuid.New().String(),
			Title:       "Chipmakers Race to Expand Domestic Fabs Amid Supply Concerns",
			Description: "Three manufacturers announced new fabrication plants this quarter, betting subsidies will offset the higher cost of building at home.",
			Source:      "Silicon Ledger",
			Category:    "technology",
			URL:         "https://example.com/articles/chipmakers-domestic-fabs",
			PublishedAt: now.Add(-9 * time.Hour),
		},
		{
			ID:          uuid.New().String(),
			Title:       "Coastal Cities Draft New Flood Defenses as Sea Levels Climb",
			Description: "Engineers presented levee and wetland restoration plans to councils in four port cities after the latest tidal gauge readings.",
			Source:      "Horizon Report",
			Category:    "climate",
			URL:         "https://example.com/articles/coastal-flood-defenses",
			PublishedAt: now.Add(-16 * time.Hour),
		},
		{
			ID:          uuid.New().String(),
			Title:       "Trade Talks Resume Between Regional Blocs After Two-Year Freeze",
			Description: "Negotiators returned to the table with tariffs on agricultural goods and data-flow rules topping the agenda.",
			Source:      "Global Brief",
			Category:    "world",
			URL:         "https://example.com/articles/trade-talks-resume",
			PublishedAt: now.Add(-26 * time.Hour),
		},
	}
}
