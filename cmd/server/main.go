package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cinegate/internal/catalog"
	"cinegate/internal/config"
	apphttp "cinegate/internal/http"
	"cinegate/internal/mailer"
	"cinegate/internal/password"
	"cinegate/internal/repository/sqlite"
	"cinegate/internal/service"
	"cinegate/internal/token"
	"cinegate/internal/verification"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.AccessTokenSecret) == "" ||
		strings.TrimSpace(cfg.Auth.RefreshTokenSecret) == "" ||
		strings.TrimSpace(cfg.Auth.EmailVerifySecret) == "" {
		logger.Fatalf("auth token secrets are required")
	}
	if strings.TrimSpace(cfg.Auth.PasswordPepper) == "" {
		logger.Fatalf("auth password pepper is required")
	}
	if strings.TrimSpace(cfg.Catalog.APIKey) == "" {
		logger.Fatalf("catalog api key is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	codec := token.NewCodec(token.Config{
		Access:      token.KindConfig{Secret: cfg.Auth.AccessTokenSecret, Lifetime: cfg.Auth.AccessTokenTTL},
		Refresh:     token.KindConfig{Secret: cfg.Auth.RefreshTokenSecret, Lifetime: cfg.Auth.RefreshTokenTTL},
		EmailVerify: token.KindConfig{Secret: cfg.Auth.EmailVerifySecret, Lifetime: cfg.Auth.EmailVerifyTokenTTL},
	}, time.Now)
	tracker := verification.NewTracker(codec, cfg.Auth.ResendDebounce, time.Now)
	hasher := password.NewHasher(cfg.Auth.PasswordPepper, cfg.Auth.PasswordIterations)

	dispatcher := mailer.NewDispatcher(mailer.Config{
		QueueSize: cfg.Mailer.QueueSize,
		Workers:   cfg.Mailer.Workers,
		Logger:    logger,
	}, &mailer.LogSender{Logger: logger})
	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatalf("start mail dispatcher: %v", err)
	}

	authService := service.NewAuthService(userRepo, codec, tracker, hasher, dispatcher)
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authService, catalogClient, codec)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	dispatcher.Shutdown()

	logger.Info("bye")
}
