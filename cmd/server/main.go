package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mukkelmaus/Flox/internal/ai"
	"github.com/mukkelmaus/Flox/internal/auth"
	"github.com/mukkelmaus/Flox/internal/cache"
	"github.com/mukkelmaus/Flox/internal/config"
	"github.com/mukkelmaus/Flox/internal/db"
	api "github.com/mukkelmaus/Flox/internal/http"
	"github.com/mukkelmaus/Flox/internal/repo"
	"github.com/mukkelmaus/Flox/internal/service"
	"github.com/mukkelmaus/Flox/internal/ws"
	"github.com/mukkelmaus/Flox/migrations"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisCache, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	authManager := auth.NewManager(cfg.JWTSecret)
	repository := repo.New(pool)

	origins := splitOrigins(cfg.CORSOrigin)
	hub := ws.NewHub(func(r *http.Request) bool {
		// Non-browser clients send no Origin header.
		origin := r.Header.Get("Origin")
		return origin == "" || api.OriginAllowed(origins, origin)
	})

	svc := service.New(repository, authManager)
	svc.Notifier = hub
	svc.Cache = redisCache
	if cfg.OpenAIKey != "" {
		svc.AI = ai.New(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Print("OPENAI_API_KEY not set, task assessment disabled")
	}

	handler := &api.API{
		Repo:    repository,
		Service: svc,
		Auth:    authManager,
		Hub:     hub,
		Origins: origins,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
