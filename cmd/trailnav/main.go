package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/the-biKing/hikingTW/internal/config"
	"github.com/the-biKing/hikingTW/internal/db"
	"github.com/the-biKing/hikingTW/internal/engine"
	"github.com/the-biKing/hikingTW/internal/handlers"
	"github.com/the-biKing/hikingTW/internal/repository"
	"github.com/the-biKing/hikingTW/internal/trail"
)

// store is what both persistence backends provide
type store interface {
	engine.Store
	engine.CompletionRecorder
	handlers.Pinger
	Cleanup(ctx context.Context, retention time.Duration) error
}

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	log.Println("Starting trail navigation service...")

	cfg := config.Load()
	log.Printf("Config loaded: data=%s, on-route=%.0fm, give-up=%.0fm", cfg.DataDir, cfg.OnRouteThreshold, cfg.GiveUpThreshold)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Trail graph
	// ═══════════════════════════════════════════════════════
	graph := trail.NewStore(os.DirFS(cfg.DataDir))
	if err := graph.LoadIndex(); err != nil {
		log.Printf("Warning: failed to load segment index: %v", err)
		// Continue anyway - no region can be loaded until the data is fixed
	}
	if err := graph.LoadNodes(); err != nil {
		log.Printf("Warning: failed to load nodes: %v", err)
	}
	if len(cfg.Regions) > 0 {
		if unknown := graph.LoadRegion(cfg.Regions...); len(unknown) > 0 {
			log.Printf("Warning: unknown regions %v", unknown)
		}
		log.Printf("Preloaded %d segments for regions %v", graph.SegmentCount(), cfg.Regions)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Persistence
	// ═══════════════════════════════════════════════════════
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Session
	// ═══════════════════════════════════════════════════════
	session, err := engine.NewSession(ctx, graph, st, cfg.Session())
	if err != nil {
		log.Fatalf("Failed to restore session: %v", err)
	}

	// Completion log cleanup goroutine
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Cleanup(ctx, cfg.RetentionDuration); err != nil {
					log.Printf("Cleanup error: %v", err)
				}
			case <-ctx.Done():
				log.Println("Cleanup loop stopped")
				return
			}
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP
	// ═══════════════════════════════════════════════════════
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", handlers.NewHealthHandler(st, graph).GetHealth)
	r.Get("/api/trailheads", handlers.NewTrailHandler(graph).GetTrailheads)
	handlers.NewNavigationHandler(session).Routes(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		log.Println("  POST /api/fixes")
		log.Println("  POST /api/fixes/lost")
		log.Println("  GET  /api/status")
		log.Println("  GET  /api/route")
		log.Println("  GET  /api/itinerary, PUT /api/itinerary")
		log.Println("  POST /api/itinerary/days")
		log.Println("  POST /api/itinerary/day/{index|previous|next}, DELETE /api/itinerary/day/{index}")
		log.Println("  GET  /api/trailheads?regions=")
		log.Println("  GET  /api/profile")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful Shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise
func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	if cfg.DatabaseURL != "" {
		repo, err := repository.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		log.Println("Using Postgres store")
		return repo, repo.Close, nil
	}

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}
	log.Println("Using SQLite store")
	return database, func() { database.Close() }, nil
}
