// Command server runs the complaints HTTP API.
//
//	@title			Complaints API
//	@version		1.0
//	@description	Complaint submission, triage and resolution for a food-delivery platform.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-complaints-backend/docs"
	"github.com/tbourn/go-complaints-backend/internal/classifier"
	"github.com/tbourn/go-complaints-backend/internal/config"
	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	httpapi "github.com/tbourn/go-complaints-backend/internal/http"
	"github.com/tbourn/go-complaints-backend/internal/observability"
	"github.com/tbourn/go-complaints-backend/internal/repo"
	"github.com/tbourn/go-complaints-backend/internal/services"
	"github.com/tbourn/go-complaints-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// store is everything the services need from a backend.
type store interface {
	services.ComplaintStore
	services.IdempotencyStore
	services.Versioner
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(runTokenCmd(os.Args[2:], os.Getenv("JWT_SECRET"), os.Stdout, os.Stderr))
	}
	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	st, closeStore, err := openStore(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	gw, err := newGateway(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	hub := events.NewHub()
	metrics, err := observability.NewComplaintMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	notifiers := events.Fanout{hub, metrics}
	if cfg.Rabbit.URL != "" {
		pub, err := events.DialPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer func() { _ = pub.Close() }()
		notifiers = append(notifiers, pub)
		log.Info().Str("exchange", cfg.Rabbit.Exchange).Msg("publishing complaint events")
	}

	var rdb redis.Cmdable
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so an unreachable Redis only weakens limits.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis ping failed")
		}
		rdb = client
	}

	complaints := services.NewComplaintService(st, gw, notifiers)
	complaints.Idem = st
	complaints.IdemTTL = cfg.IdempotencyTTL
	complaints.MaxTextRunes = cfg.MaxTextRunes

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Complaints: complaints,
		Triage:     services.NewTriageService(st),
		Idem:       st,
		Hub:        hub,
		Redis:      rdb,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", appVersion).
			Str("store", cfg.DB.Driver).
			Str("classifier", cfg.Classifier.Mode).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// gormSetup prepares a freshly opened SQL handle, in order.
var gormSetup = []func(*gorm.DB) error{repo.Instrument, repo.AutoMigrate}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg config.DBConfig) (store, func(), error) {
	if cfg.Driver == "mongo" {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(cctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		ms := repo.NewMongoStore(client.Database(cfg.MongoDBName))
		if err := ms.EnsureIndexes(cctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return ms, func() { _ = client.Disconnect(context.Background()) }, nil
	}

	db, err := repo.Open(cfg.Driver, cfg.Path, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	for _, step := range gormSetup {
		if err := step(db); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return repo.NewGormStore(db), closeFn, nil
}

// newGateway builds the local keyword classifier or the remote HTTP client.
func newGateway(cfg config.ClassifierConfig) (classifier.Gateway, error) {
	if cfg.Mode == "remote" {
		return classifier.NewRemote(cfg.URL, cfg.Timeout), nil
	}

	var examples []classifier.Example
	if cfg.Corpus != "" {
		ex, err := classifier.LoadCorpus(cfg.Corpus)
		if err != nil {
			return nil, err
		}
		examples = ex
	}
	opts := []classifier.Option{classifier.WithTopK(cfg.TopK)}
	if cfg.Fallback != "" {
		opts = append(opts, classifier.WithFallback(domain.Category(cfg.Fallback)))
	}
	return classifier.NewLocal(examples, opts...), nil
}
