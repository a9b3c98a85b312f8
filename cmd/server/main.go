package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokopintar/backend/internal/cache"
	"tokopintar/backend/internal/config"
	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/httpapi"
	"tokopintar/backend/internal/service"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/store/memory"
	"tokopintar/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[server] connect postgres: %v", err)
		}
		defer pg.Close()
		if cfg.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				log.Fatalf("[server] %v", err)
			}
		}
		if err := ensureAdminUser(ctx, pg); err != nil {
			log.Fatalf("[server] seed admin user: %v", err)
		}
		repo = pg
		log.Printf("[server] using postgres store")
	} else {
		repo = memory.NewSeeded()
		log.Printf("[server] DATABASE_URL not set, using in-memory store")
	}

	var summaryCache cache.SummaryCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("[server] WARN: redis unavailable, analytics cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			summaryCache = redisCache
			log.Printf("[server] analytics cache on redis %s", cfg.RedisAddr)
		}
	}

	secret := cfg.AuthSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("[server] generate auth secret: %v", err)
		}
		secret = hex.EncodeToString(buf)
		log.Printf("[server] WARN: AUTH_SECRET not set, generated an ephemeral one; tokens will not survive restarts")
	}

	svc := service.New(repo, summaryCache, cfg.SummaryTTL)
	auth := httpapi.NewAuthManager(repo, secret, cfg.TokenTTL)
	api := httpapi.NewServer(svc, auth)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(cfg.AllowedOrigin),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("[server] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] WARN: shutdown: %v", err)
	}
}

// ensureAdminUser creates the initial admin account on a fresh database so
// the API is reachable before any users exist.
func ensureAdminUser(ctx context.Context, repo store.Store) error {
	_, err := repo.GetUser(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Printf("[server] WARNING: SEED_ADMIN_PASSWORD not set, seeding admin with the default password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.CreateUser(ctx, domain.UserAccount{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	})
}
