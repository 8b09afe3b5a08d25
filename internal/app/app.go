package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/localdrop/internal/broadcast"
	"github.com/MrSnakeDoc/localdrop/internal/config"
	"github.com/MrSnakeDoc/localdrop/internal/devices"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/interactionlog"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/metrics"
	"github.com/MrSnakeDoc/localdrop/internal/redis"
	"github.com/MrSnakeDoc/localdrop/internal/scheduler"
	"github.com/MrSnakeDoc/localdrop/internal/service"
	filestore "github.com/MrSnakeDoc/localdrop/internal/store/file"
	redisstore "github.com/MrSnakeDoc/localdrop/internal/store/redis"
	"github.com/MrSnakeDoc/localdrop/internal/uploads"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
	"github.com/MrSnakeDoc/localdrop/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	svc         *service.Service
	redisClient *goredis.Client
	sweeper     *scheduler.UploadSweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Device persistence: flat file by default, redis when configured.
	var (
		persister   devices.Persister
		redisClient *goredis.Client
	)
	switch cfg.DeviceStore {
	case config.DeviceStoreRedis:
		// Fail fast if redis is unavailable
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		persister = redisstore.NewDeviceStore(client)
		loggerClient.Info("device registry persisted in redis")
	default:
		persister = filestore.NewDeviceStore(cfg.DeviceFile)
		loggerClient.Info("device registry persisted to file",
			logger.String("file", cfg.DeviceFile))
	}

	// Uploads (optional)
	var files *uploads.Store
	if cfg.UploadDir != "" {
		store, err := uploads.New(cfg.UploadDir)
		if err != nil {
			loggerClient.Errorf("Failed to prepare upload directory: %v", err)
			os.Exit(1)
		}
		files = store
		loggerClient.Info("file sharing enabled", logger.String("dir", store.Dir()))
	} else {
		loggerClient.Info("upload dir not configured, file sharing disabled")
	}

	// Interaction log (optional, never fatal)
	var ilog interactionlog.Sink = interactionlog.Nop{}
	if cfg.LogDir != "" {
		sink, err := interactionlog.Open(cfg.LogDir)
		if err != nil {
			loggerClient.Warn("interaction log disabled", logger.Error(err))
		} else {
			ilog = sink
			loggerClient.Info("interaction log opened", logger.String("file", sink.Path()))
		}
	}

	svc := service.New(service.Options{
		Logger:         loggerClient,
		Persister:      persister,
		Uploads:        files,
		InteractionLog: ilog,
		Broadcast: broadcast.Options{
			PushTimeout: cfg.PushTimeout,
			NotifyWait:  cfg.NotifyWait,
			QueueSize:   cfg.NotifyQueueSize,
		},
	})

	var sweeper *scheduler.UploadSweeper
	if files != nil && cfg.SweepInterval > 0 {
		sweeper = scheduler.NewUploadSweeper(files, svc.Feed(), loggerClient, cfg.SweepInterval, cfg.SweepGrace)
	}

	build := version.Get()
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.GoVersion).Set(1)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Build:             build,
		TimeNow:           time.Now,
		Service:           svc,
		StaticDir:         cfg.StaticDir,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		RequestTimeout:    cfg.RequestTimeout,
		SubscriberBuffer:  cfg.SubscriberBuffer,
		KeepAliveInterval: cfg.KeepAliveInterval,
		PostBurst:         cfg.PostBurst,
		PostPerMin:        cfg.PostPerMin,
		AllowedHosts:      cfg.AllowedHosts,
		AdminCIDRS:        cfg.AdminCIDRS,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		RedisClient:       redisClient,
	}

	server := httpserver.New(cfg, loggerClient, d)
	// Live streams keep their connection busy, end them when shutdown starts.
	server.OnShutdown(func() { svc.DisconnectAll() })

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		svc:         svc,
		redisClient: redisClient,
		sweeper:     sweeper,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting LocalDrop %s on %s", version.Get().Short(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load devices and start the notice dispatcher
	a.svc.Start(ctx)

	// Start upload sweeper (if enabled)
	if a.sweeper != nil {
		if err := a.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start upload sweeper: %w", err)
		}
		a.logger.Info("upload sweeper started",
			logger.Duration("interval", a.cfg.SweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	a.logURLs()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.svc.Shutdown()
		return err
	}

	// Stop upload sweeper
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.svc.Shutdown()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ LocalDrop stopped cleanly")
	return nil
}

// logURLs prints where other devices and the admin should point their browser.
func (a *App) logURLs() {
	port := a.cfg.ListenPort
	if i := strings.LastIndex(port, ":"); i >= 0 {
		port = port[i+1:]
	}
	if ip := utils.LocalIPv4(); ip != "" {
		a.logger.Infof("👥 User mode:  http://%s:%s", ip, port)
	}
	a.logger.Infof("🔑 Admin mode: http://localhost:%s", port)
}
