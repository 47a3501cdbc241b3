// Package main provides the API server entry point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"github.com/verdantlab/floralog/internal/db"
	"github.com/verdantlab/floralog/internal/middleware"
	"github.com/verdantlab/floralog/pkg/dashboard"
	"github.com/verdantlab/floralog/pkg/geocode"
	"github.com/verdantlab/floralog/pkg/locations"
	"github.com/verdantlab/floralog/pkg/researchers"
	"github.com/verdantlab/floralog/pkg/samples"
	"github.com/verdantlab/floralog/pkg/session"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	var (
		listenAddr string
		dbDriver   string
		dbDSN      string
	)
	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&dbDriver, "db-driver", "postgres", "Database driver (postgres, mysql, or sqlite)")
	flag.StringVar(&dbDSN, "db-dsn", "", "Database connection string")
	flag.Parse()

	if dbDSN == "" {
		dbDSN = os.Getenv("DATABASE_URL")
	}

	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting server", "listen", listenAddr, "driver", dbDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Open(dbDriver, dbDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		glog.Fatalf("Failed to migrate database: %v", err)
	}

	var geocoder samples.Geocoder
	if token := os.Getenv("MAPBOX_TOKEN"); token != "" {
		geocoder = geocode.NewClient(token)
		logger.Info("reverse geocoding enabled")
	} else {
		logger.Info("MAPBOX_TOKEN not set, skipping reverse geocoding for picked coordinates")
	}

	locationStore := locations.NewStore(gormDB)
	researcherStore := researchers.NewStore(gormDB)
	sampleStore := samples.NewStore(gormDB)
	dashboardStore := dashboard.NewStore(gormDB)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", session.AuthIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := gormDB.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(session.Middleware)
		r.Use(session.RequireAuth)
		r.Mount("/locations", locations.NewRouter(locationStore))
		r.Mount("/researchers", researchers.NewRouter(researcherStore, nil))
		r.Mount("/samples", samples.NewRouter(sampleStore, geocoder))
		r.Mount("/dashboard", dashboard.NewRouter(dashboardStore))
		r.Mount("/reports", dashboard.NewReportsRouter(dashboardStore))
	})

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server ready", "listen", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
