package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/app"
	"github.com/joseph-ayodele/road-estimator/internal/async"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/ingest"
	"github.com/joseph-ayodele/road-estimator/internal/pipeline"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

func main() {
	v := common.NewViper()
	v.SetDefault("logging.format", "json")
	if path := os.Getenv(common.EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("roadest")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config", "error", err)
			os.Exit(2)
		}
	}
	cfg := common.LoadConfig(v)

	logger, err := common.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("invalid logging config", "error", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := repository.HealthCheck(ctx, a.Store.Driver(), 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	go watchStore(ctx, a.Store, healthServer, logger)

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
		async.WithBaseContext(ctx),
		async.WithResultHandler(func(_ async.Job, _ pipeline.Outcome, err error) {
			if pipeline.Fatal(err) {
				healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			}
		}),
	)

	enqueue := func(id uuid.UUID) {
		if err := queue.Enqueue(ctx, async.Job{DocumentID: id, TraceID: uuid.NewString()}); err != nil && ctx.Err() == nil {
			logger.Error("failed to enqueue document", "document_id", id, "error", err)
		}
	}

	// documents a previous run queued or left half done
	pending, err := a.Store.Documents.ListByStatus(ctx,
		constants.DocumentStatusQueued, constants.DocumentStatusRunning, constants.DocumentStatusTextOK)
	if err != nil {
		logger.Error("failed to list pending documents", "error", err)
		os.Exit(1)
	}
	for _, d := range pending {
		enqueue(d.ID)
	}
	logger.Info("resumed pending documents", "count", len(pending))

	ing := ingest.NewFSIngestor(a.Store, logger)
	go func() {
		err := ingest.Poll(ctx, ing, ingest.PollConfig{
			Root:       cfg.Pipeline.InboxDir,
			Interval:   cfg.Pipeline.PollInterval,
			SkipHidden: cfg.Pipeline.SkipHidden,
		}, logger, enqueue)
		if err != nil {
			logger.Error("inbox poller stopped", "error", err)
		}
	}()

	logger.Info("tenderd listening", "addr", cfg.Server.GRPCAddr, "inbox", cfg.Pipeline.InboxDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// watchStore flips the health status when the store stops answering.
func watchStore(ctx context.Context, store *repository.Store, hs *health.Server, logger *slog.Logger) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		err := repository.HealthCheck(ctx, store.Driver(), 2*time.Second, logger)
		if err != nil {
			hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		} else {
			hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		}
		switch {
		case err != nil && serving:
			logger.Error("database unreachable", "error", err)
		case err == nil && !serving:
			logger.Info("database reachable again")
		}
		serving = err == nil
	}
}
