package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/api"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/api/middleware"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/capture"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/messaging"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/services"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/storage"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/auth"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/nacos"
)

const serviceName = "agaru-up-api"

func main() {
	// process environment wins over .env
	if err := config.LoadDotEnv(); err != nil {
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/agaru-up-api.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig(serviceName)
	logCfg.Level = cfg.Log.Level
	logCfg.JSONFormat = cfg.Log.JSON
	logCfg.FilePath = cfg.Log.FilePath
	logCfg.ReportCaller = cfg.Log.ReportCaller
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	gin.SetMode(cfg.Server.Mode)
	ctx := context.Background()

	db, err := storage.NewDBConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatal("connect database: %v", err)
	}
	log.Info("connected to %s database %s", cfg.Database.Driver, cfg.Database.LogSafeDSN())

	if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		log.Fatal("migrate database: %v", err)
	}

	repos := storage.NewRepositories(db)
	defer repos.Close()

	if cfg.Seed.CamerasFile != "" {
		seed, err := storage.LoadCameraSeed(cfg.Seed.CamerasFile)
		if err != nil {
			log.Fatal("load camera seed: %v", err)
		}
		n, err := storage.SeedCameras(ctx, repos.Cameras, seed, time.Now())
		if err != nil {
			log.Fatal("seed cameras: %v", err)
		}
		log.Info("seeded %d cameras from %s", n, cfg.Seed.CamerasFile)
	}

	objects, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("init object storage: %v", err)
	}
	log.Info("object storage %s ready, public base %s", cfg.Storage.Backend, objects.BaseURL())

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := messaging.NewKafkaProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("kafka unavailable, running without events: %v", err)
		} else {
			publisher = producer
		}
	}
	defer publisher.Close()

	fetcher := capture.NewFetcher(cfg.Capture, log)

	var jwtService *auth.JWTService
	if cfg.Auth.Enabled {
		jwtService = auth.NewJWTService(cfg.Auth.JWTSecret, 24)
	}

	var limiter *middleware.IPRateLimiter
	if cfg.Report.RateLimitPerMinute > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.Report.RateLimitPerMinute, cfg.Report.RateBurst, log)
		defer limiter.Close()
	}

	catalogService := services.NewCatalogService(repos.Videos, log)
	lookupService := services.NewLookupService(repos.Videos, repos.Cameras, log)
	reportService := services.NewReportService(repos.Videos, objects, fetcher, publisher, services.ReportOptions{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		DefaultTitles:  cfg.Report.DefaultTitles,
		DefaultTags:    cfg.Report.DefaultTags,
	}, log)

	router := api.NewRouter(api.Dependencies{
		Catalog:        catalogService,
		Lookup:         lookupService,
		Reports:        reportService,
		Ping:           repos.Ping,
		JWT:            jwtService,
		RateLimiter:    limiter,
		Location:       cfg.Server.Location(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		Log:            log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var nacosClient *nacos.Client
	port, _ := strconv.Atoi(cfg.Server.Port)
	if cfg.Nacos.Enable {
		nacosClient, err = nacos.NewClient(cfg.Nacos.Config, log)
		if err != nil {
			log.Error("init nacos client: %v", err)
		} else if err := nacosClient.Register(cfg.Nacos.ServiceName, "", port, map[string]string{"version": "1"}, 5*time.Second); err != nil {
			log.Error("register with nacos: %v", err)
			nacosClient = nil
		} else {
			log.Info("registered with nacos as %s on port %d", cfg.Nacos.ServiceName, port)
		}
	}

	if cfg.Tunnel.Token != "" {
		log.Info("tunnel token configured; exposure is handled by the tunnel sidecar")
	}

	go func() {
		log.Info("%s listening on :%s", serviceName, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down %s", serviceName)

	if nacosClient != nil {
		if err := nacosClient.Deregister(cfg.Nacos.ServiceName, "", port); err != nil {
			log.Error("deregister from nacos: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown: %v", err)
	}
	log.Info("%s stopped", serviceName)
}
