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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/drop-waitlist/internal/claim"
	"github.com/iliyamo/drop-waitlist/internal/config"
	"github.com/iliyamo/drop-waitlist/internal/database"
	"github.com/iliyamo/drop-waitlist/internal/handler"
	"github.com/iliyamo/drop-waitlist/internal/middleware"
	"github.com/iliyamo/drop-waitlist/internal/queue"
	"github.com/iliyamo/drop-waitlist/internal/repository"
	"github.com/iliyamo/drop-waitlist/internal/router"
	"github.com/iliyamo/drop-waitlist/internal/scoring"
	"github.com/iliyamo/drop-waitlist/internal/service"
	"github.com/iliyamo/drop-waitlist/internal/waitlist"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}

	coef, err := config.LoadCoefficients()
	if err != nil {
		log.Fatalf("scoring: %v", err)
	}
	scorer, err := scoring.NewScorer(coef)
	if err != nil {
		log.Fatalf("scoring: %v", err)
	}
	log.Printf("scoring coefficients A=%d B=%d C=%d", coef.A, coef.B, coef.C)

	st := repository.NewStore(db)
	opts := service.Options{
		Store:     st,
		Catalog:   repository.NewDropRepo(db),
		Ranker:    waitlist.NewRanker(st, scorer),
		Allocator: claim.NewAllocator(st, nil),
	}
	if cfg.AMQPURL != "" {
		opts.Publisher = queue.NewPublisher(cfg.AMQPURL)
	}
	svc := service.New(opts)

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterDrops(e, handler.NewDropHandler(svc), cfg.JWTSecret, router.DropMiddleware{
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.AMQPURL != "" {
		g.Go(func() error {
			err := queue.NewAuditConsumer(cfg.AMQPURL, cfg.AuditLogDir).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Println("shutdown complete")
}
