package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pindropapp/pindrop-backend/api/routes"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	"github.com/pindropapp/pindrop-backend/internal/cards"
	"github.com/pindropapp/pindrop-backend/internal/mailer"
	"github.com/pindropapp/pindrop-backend/internal/music"
	"github.com/pindropapp/pindrop-backend/internal/oauth"
	"github.com/pindropapp/pindrop-backend/internal/passwordreset"
	"github.com/pindropapp/pindrop-backend/pkg/auth/session"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/metrics"
	"github.com/pindropapp/pindrop-backend/pkg/migrate"
	"github.com/pindropapp/pindrop-backend/pkg/redis"
	"github.com/pindropapp/pindrop-backend/pkg/uploads"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	contentStore, err := uploads.NewStore(cfg.Content.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare content directory", err)
		os.Exit(1)
	}

	cardsRepo := cards.NewRepository(dbClient.DB())
	cardsService, err := cards.NewService(cards.ServiceParams{
		Repo:          cardsRepo,
		Store:         contentStore,
		Logger:        logg,
		ContentConfig: cfg.Content,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cards service", err)
		os.Exit(1)
	}

	accountsRepo := accounts.NewRepository(dbClient.DB())
	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:           accountsRepo,
		Cards:          cardsRepo,
		Files:          contentStore,
		SessionManager: sessionManager,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	resetService, err := passwordreset.NewService(passwordreset.ServiceParams{
		Accounts:       accountsRepo,
		Mail:           mailer.New(cfg.Mail, logg),
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		ResetConfig:    cfg.PasswordReset,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	var musicSearcher music.Searcher
	if cfg.Music.ClientID != "" && cfg.Music.ClientSecret != "" {
		musicClient, err := music.NewClient(cfg.Music)
		if err != nil {
			logg.Error(context.Background(), "failed to create music client", err)
			os.Exit(1)
		}
		musicSearcher = musicClient
	} else {
		logg.Warn(context.Background(), "music credentials not set, music search disabled")
	}

	var oauthExchanger oauth.Exchanger
	if cfg.OAuth.ClientID != "" && cfg.OAuth.ClientSecret != "" {
		oauthClient, err := oauth.NewClient(cfg.OAuth)
		if err != nil {
			logg.Error(context.Background(), "failed to create oauth client", err)
			os.Exit(1)
		}
		oauthExchanger = oauthClient
	} else {
		logg.Warn(context.Background(), "oauth credentials not set, external login disabled")
	}

	metricsReg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(metricsReg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	router := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Sessions:   sessionManager,
		Metrics:    httpMetrics,
		MetricsReg: metricsReg,
		ContentDir: contentStore.Dir(),
		Accounts:   accountsService,
		Cards:      cardsService,
		Resets:     resetService,
		Music:      musicSearcher,
		OAuth:      oauthExchanger,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
