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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live_poll/internal/api"
	"live_poll/internal/repository"
	repomodels "live_poll/internal/repository/models"
	"live_poll/internal/service"
	"live_poll/internal/storage"
	"live_poll/pkg/config"
	"live_poll/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("LIVEPOLL_CONFIG"), "設定檔路徑，空字串表示只用預設值與環境變數")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "live_poll: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 載入應用程式配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// 歸檔是選用的，Session 本身只存在記憶體中
	var (
		db       *storage.Database
		repos    *repository.Repositories
		worker   *service.ArchiveWorker
		archiver service.PollArchiver
		archive  repository.PollArchiveRepository
	)
	if cfg.Archive.Enabled {
		db, err = storage.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn("close database", zap.Error(err))
			}
		}()

		if err := db.AutoMigrate(&repomodels.ArchivedPoll{}, &repomodels.ArchivedOption{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}

		repos = repository.NewRepositories(db)
		archive = repos.PollArchive
		worker = service.NewArchiveWorker(archive, cfg.Archive.QueueSize, log.Named("archive"))
		archiver = worker
		log.Info("poll archive enabled", zap.String("driver", cfg.DB.Driver))
	}

	hub := service.NewHub(service.HubOptions{
		SendBuffer: cfg.Hub.SendBuffer,
		ReadLimit:  cfg.Hub.ReadLimit,
		PongWait:   cfg.Hub.PongWait,
		WriteWait:  cfg.Hub.WriteWait,
	}, log.Named("hub"))

	services := service.NewServices(hub, service.PollPolicy{
		DefaultDuration:      cfg.Poll.DefaultDuration,
		EnforceDeadline:      cfg.Poll.EnforceDeadline,
		OneVotePerConnection: cfg.Poll.OneVotePerConnection,
		HistoryLimit:         cfg.Poll.HistoryLimit,
	}, archiver, log)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx, services.Dispatcher)

	// 設置 Gin 路由
	r := gin.New()
	api.SetupRoutes(r, api.Dependencies{
		Hub:            hub,
		Services:       services,
		Archive:        archive,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("address", cfg.Server.Address), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	var runErr error
	select {
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error("server failed", zap.Error(runErr))
		}
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停止接受新請求，WebSocket 連接由 Hub 關閉
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	// 目前題目尚未被取代，關閉前一併歸檔
	if worker != nil {
		if err := hub.Query(ctx, services.Polls.ArchiveActive); err != nil {
			log.Warn("archive active poll", zap.Error(err))
		}
	}

	stopHub()
	<-hub.Done()

	if worker != nil {
		worker.Close()
	}

	log.Info("server stopped")
	return runErr
}
