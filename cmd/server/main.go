package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/api"
	"github.com/incridea/capture-pipeline/pkg/capture/config"
	"github.com/incridea/capture-pipeline/pkg/capture/ingest"
)

// ServerEnv holds process-level settings read once at startup. Everything
// pipeline-specific flows through the config package.
type ServerEnv struct {
	EnvPrefix   string `env:"CAPTURE_ENV_PREFIX" env-default:""`
	AutoMigrate bool   `env:"CAPTURE_AUTO_MIGRATE" env-default:"true"`
}

func main() {
	var env ServerEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}

	cfg, err := config.Load(config.WithEnv(env.EnvPrefix))
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	if env.AutoMigrate {
		if err := cfg.MigrateDatabase(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	svc, err := cfg.BuildService()
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	ingestor, err := cfg.BuildIngestor()
	if err != nil {
		log.Fatalf("Failed to build ingestor: %v", err)
	}

	server := NewHTTPServer(svc, ingestor, cfg)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: server.Routes(),
	}

	go func() {
		slog.Info("Capture pipeline server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"storage", cfg.DefaultStorageBackend,
			"database", cfg.DatabaseType)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server exiting")
}

// HTTPServer wraps the capture service for HTTP access
type HTTPServer struct {
	service  capture.Service
	ingestor *ingest.Ingestor
	config   *config.ServerConfig
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service capture.Service, ingestor *ingest.Ingestor, cfg *config.ServerConfig) *HTTPServer {
	return &HTTPServer{
		service:  service,
		ingestor: ingestor,
		config:   cfg,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if s.config.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// Every request gets an identity: JWT claims when a valid admin token is
	// presented, a year-long anonymous cookie token otherwise.
	r.Use(api.Verifier(api.NewJWTAuth(s.config.JWTSecret)))
	r.Use(api.WithIdentity)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/captures", api.NewCaptureHandler(s.service, s.ingestor).Routes())
		r.Mount("/events", api.NewEventHandler(s.service).Routes())
		r.Mount("/removal-requests", api.NewRemovalHandler(s.service).Routes())
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.config.DatabaseType == "postgres" {
		if err := config.PingPostgres(s.config.DatabaseURL); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}
