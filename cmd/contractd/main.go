package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/contract-tracker/internal/app"
	"github.com/joseph-ayodele/contract-tracker/internal/async"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/ingest"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
	"github.com/joseph-ayodele/contract-tracker/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{WithLLM: true})
	if err != nil {
		log.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	deps := server.Deps{Extractor: a.Processor, Logger: log}
	if a.Jobs != nil {
		deps.Jobs = a.Jobs
		deps.Exporter = a.Export
		deps.DB = a.DB
	}

	var queue *async.ProcessorQueue
	if len(cfg.Server.IngestRoots) > 0 {
		queue = async.NewProcessorQueue(a.Processor, log,
			async.WithWorkers(cfg.Upload.BatchWorkers),
			async.WithQueueSize(512),
			async.WithProcessTimeout(5*time.Minute),
		)
		deps.Ingestor = ingest.NewFSIngestor(queue, log)
		deps.IngestRoots = cfg.Server.IngestRoots
		log.Info("contractd.ingest.enabled", "roots", cfg.Server.IngestRoots)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC carries only the standard health service for orchestrators.
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("contractd.http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("contractd.grpc.listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("contractd.shutdown.signal")
	case err := <-errCh:
		log.Error("contractd.serve_failed", "error", err)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("contractd.http.shutdown_failed", "error", err)
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	grpcServer.GracefulStop()
	log.Info("contractd.stopped")
}
