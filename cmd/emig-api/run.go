package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/Gthorpe2274/mocha-emig/internal/api_server"
	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/config"
	"github.com/Gthorpe2274/mocha-emig/internal/generator"
	handlers "github.com/Gthorpe2274/mocha-emig/internal/handlers/v1"
	"github.com/Gthorpe2274/mocha-emig/internal/notify"
	"github.com/Gthorpe2274/mocha-emig/internal/renderer"
	"github.com/Gthorpe2274/mocha-emig/internal/service"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/worker"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the report pipeline service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting report pipeline service")
		defer zap.S().Info("Report pipeline service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		jobCache := newCache(cfg)
		blobStore, err := newBlobStore(cfg)
		if err != nil {
			zap.S().Fatalw("initializing blob store", "error", err)
		}

		jobCfg := service.JobConfig{
			MaxAttempts:       cfg.Pipeline.MaxAttempts,
			BatchSize:         cfg.Pipeline.BatchSize,
			CacheTTL:          cfg.Cache.TTL,
			BlobTTL:           cfg.Blob.TTL,
			TokenTTL:          cfg.Pipeline.TokenTTL,
			GenerationTimeout: cfg.Pipeline.GenerationTimeout,
			RenderTimeout:     cfg.Pipeline.RenderTimeout,
			BaseURL:           cfg.Service.BaseUrl,
		}

		jobService := service.NewJobService(
			s,
			jobCache,
			blobStore,
			generator.NewHTTPClient(cfg.Service.GeneratorURL, cfg.Service.GeneratorAPIKey),
			renderer.NewHTTPClient(cfg.Service.RendererURL),
			notify.NewLogNotifier(),
			jobCfg,
		)
		recoveryService := service.NewRecoveryService(s, jobCache, jobCfg)
		retentionService := service.NewRetentionService(s, jobCache, blobStore)
		downloadService := service.NewDownloadService(s, blobStore)

		handler := handlers.NewHandler(jobService, recoveryService, retentionService, downloadService)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, s, jobCache, handler, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("running metrics server", "error", err)
			}
		}()

		scheduler := worker.NewScheduler(jobService, recoveryService, retentionService, cfg)
		go scheduler.Run(ctx)

		<-ctx.Done()
		return nil
	},
}

func newCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.Type == "memory" {
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(cfg.Cache.Address, cfg.Cache.Password, cfg.Cache.DB)
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Type {
	case "memory":
		return blob.NewMemoryStore(), nil
	case "minio":
		return blob.NewMinioStore(
			blob.WithEndpoint(cfg.Blob.Endpoint),
			blob.WithBucket(cfg.Blob.Bucket),
			blob.WithAccessKey(cfg.Blob.AccessKey),
			blob.WithSecretKey(cfg.Blob.SecretAccessKey),
			blob.WithSSL(cfg.Blob.UseSSL),
		)
	default:
		return blob.NewRedisStore(cfg.Cache.Address, cfg.Cache.Password, cfg.Cache.DB), nil
	}
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
