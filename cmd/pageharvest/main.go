// Package main wires together the crawl service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pageharvest/pageharvest/internal/api"
	"github.com/pageharvest/pageharvest/internal/clock/system"
	"github.com/pageharvest/pageharvest/internal/config"
	"github.com/pageharvest/pageharvest/internal/extract"
	collyfetcher "github.com/pageharvest/pageharvest/internal/fetcher/colly"
	"github.com/pageharvest/pageharvest/internal/id/uuid"
	"github.com/pageharvest/pageharvest/internal/logging"
	"github.com/pageharvest/pageharvest/internal/metrics"
	"github.com/pageharvest/pageharvest/internal/orchestrator"
	queueMemory "github.com/pageharvest/pageharvest/internal/queue/memory"
	"github.com/pageharvest/pageharvest/internal/report"
	memoryStorage "github.com/pageharvest/pageharvest/internal/storage/memory"
	"github.com/pageharvest/pageharvest/internal/task"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	runner := orchestrator.New(fetcher, system.New(), orchestrator.Config{
		Concurrency: cfg.Crawler.Concurrency,
		Extract: extract.Options{
			MinParagraphLen: cfg.Extract.MinParagraphLen,
			MaxHeadings:     cfg.Extract.MaxHeadings,
			MaxParagraphs:   cfg.Extract.MaxParagraphs,
			MaxLinks:        cfg.Extract.MaxLinks,
			MaxImages:       cfg.Extract.MaxImages,
		},
	}, logging.WithSubsystem(logger, "orchestrator"))

	var sink task.ReportSink
	if cfg.Report.Dir != "" {
		writer, err := report.NewWriter(cfg.Report.Dir)
		if err != nil {
			logger.Error("report sink init failed", zap.Error(err))
			os.Exit(1)
		}
		sink = writer
	}

	queue := queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	manager := task.NewManager(
		memoryStorage.NewTaskStore(),
		runner,
		queue,
		uuid.New(),
		system.New(),
		sink,
		logging.WithSubsystem(logger, "task"),
	)

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		manager.Run(ctx, cfg.Crawler.TaskWorkers)
	}()

	apiServer := api.NewServer(manager, cfg, logging.WithSubsystem(logger, "api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	<-workersDone
	logger.Info("shutdown complete")
}
