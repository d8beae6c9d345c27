package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-seat-assignment/internal/config"
	"github.com/iliyamo/event-seat-assignment/internal/database"
	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/middleware"
	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/router"
	"github.com/iliyamo/event-seat-assignment/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	registrants := repository.NewRegistrantRepo(db)
	seats := repository.NewSeatRepo(db)
	settings := repository.NewSettingRepo(db)
	checkins := repository.NewCheckinRepo(db)
	mailbox := repository.NewMailboxRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			log.Printf("bootstrap admin %s created", cfg.AdminEmail)
		}
	}

	pub := queue.NewPublisher()
	go func() {
		if err := queue.StartSeatingConsumer(ctx, pub.URL, envOr("SEATING_LOG_PATH", queue.DefaultLogPath)); err != nil {
			log.Printf("consumer: stopped: %v", err)
		}
	}()

	svc := service.NewSeatService(seats, catalog, service.NewLocker(rdb), pub)
	svc.Timeout = cfg.AssignTimeout
	svc.LockTTL = cfg.AssignLockTTL

	cacheCfg := config.LoadCacheConfig()
	var (
		cache echo.MiddlewareFunc
		purge handler.CachePurger
	)
	if rdb != nil {
		cache = middleware.NewRedisCache(cacheCfg, rdb)
		purge = func(ctx context.Context) {
			if n, err := middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix); err != nil {
				log.Printf("cache: purge: %v", err)
			} else if n > 0 {
				log.Printf("cache: purged %d keys", n)
			}
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	authH := handler.NewAuthHandler(cfg, users, tokens)
	settingsH := handler.NewSettingsHandler(settings, catalog, purge)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewRegistrantHandler(cfg, registrants, settings), settingsH, cache)
	router.RegisterAdmin(e, router.AdminHandlers{
		Auth:        authH,
		Registrants: handler.NewAdminRegistrantHandler(registrants, purge),
		Seats:       handler.NewAdminSeatHandler(svc, seats, settings),
		Settings:    settingsH,
	}, cfg.JWTSecret)
	router.RegisterCheckin(e, handler.NewCheckinHandler(checkins, registrants, pub), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadCheckinRateLimitConfig(), rdb))
	router.RegisterMailbox(e, handler.NewMailboxHandler(mailbox), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadFormRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
