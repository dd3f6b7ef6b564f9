package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"learnportal-backend/internal/config"
	"learnportal-backend/internal/password"
	"learnportal-backend/internal/session"
	"learnportal-backend/internal/store"
	"learnportal-backend/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// A missing database secret blocks storage, not the page: the site
	// comes up degraded and tells the operator what to fix.
	var st *store.Store
	if err := cfg.Validate(); err != nil {
		log.Printf("WARN storage disabled: %v", err)
	} else if !cfg.DemoMode {
		st = connectStore(cfg)
	}

	if cfg.DemoMode {
		log.Println("Running in anonymous demo mode; registrations are not persisted")
	}

	sessions := session.NewManager(cfg.SessionTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Sweep(ctx.Done(), time.Minute)

	h := web.New(cfg, st, sessions)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// connectStore dials the database with retries and makes sure the users
// table exists. Both failures leave the page running degraded; the next
// user action retries through the pool.
func connectStore(cfg *config.Config) *store.Store {
	var db *sqlx.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.Printf("DB connection attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Printf("WARN database unreachable, storage operations will fail until it recovers: %v", err)
		db, err = sqlx.Open("postgres", cfg.DSN())
		if err != nil {
			log.Fatalf("Invalid database configuration: %v", err)
		}
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	st := store.New(db, password.NewHasher(cfg.BcryptCost))
	if err := st.EnsureSchema(); err != nil {
		log.Printf("WARN could not ensure users table: %v", err)
	} else {
		log.Println("Users table ready")
	}
	return st
}
