package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcleanup "github.com/aldabergenov/auth-service/internal/auth/cleanup"
	authhttp "github.com/aldabergenov/auth-service/internal/auth/http"
	authrepo "github.com/aldabergenov/auth-service/internal/auth/repository"
	"github.com/aldabergenov/auth-service/internal/auth/service"
	"github.com/aldabergenov/auth-service/internal/common/clock"
	"github.com/aldabergenov/auth-service/internal/common/config"
	"github.com/aldabergenov/auth-service/internal/common/constants"
	commoncrypto "github.com/aldabergenov/auth-service/internal/common/crypto"
	"github.com/aldabergenov/auth-service/internal/common/db"
	commonhttp "github.com/aldabergenov/auth-service/internal/common/http"
	"github.com/aldabergenov/auth-service/internal/common/jwks"
	"github.com/aldabergenov/auth-service/internal/common/keys"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/common/resilience"
	srv "github.com/aldabergenov/auth-service/internal/common/server"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "auth", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	userRepo := authrepo.NewPgUserRepository(pool)
	refreshTokenRepo := authrepo.NewPgRefreshTokenRepository(pool)

	keyProvider := keys.NewProvider(cfg.PrivateKeyPath, cfg.JWTKeyID, cfg.RefreshSecret)
	jwksClient := jwks.NewClient(cfg.JWKSURI, log)

	dbBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCircuitBreakerThreshold,
		Timeout:    constants.DefaultCircuitBreakerTimeout,
		ResetAfter: constants.DefaultCircuitBreakerReset,
		Name:       "auth-db",
		Logger:     log,
	})

	tokenService := service.NewTokenService(
		refreshTokenRepo,
		keyProvider,
		dbBreaker,
		cfg.AccessTokenTTL,
		cfg.RefreshTTL,
		clock.NewRealClock(),
		log,
	)
	authService := service.NewAuthService(userRepo, tokenService, &commoncrypto.BcryptHasher{}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go authcleanup.StartRefreshTokenCleanup(ctx, refreshTokenRepo, log)

	handler := authhttp.NewHandler(authhttp.HandlerConfig{
		Auth:           authService,
		KeyResolver:    jwksClient,
		TokenStore:     refreshTokenRepo,
		RefreshSecret:  keyProvider.RefreshSecret(),
		CookieDomain:   cfg.CookieDomain,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	finalHandler := commonhttp.BuildBaseHandler("auth", log, mux)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, finalHandler)

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("auth service: stopping cleanup goroutine")
			cancel()
			return nil
		},
	}

	srv.StartWithGracefulShutdownAndHooks(server, log, "auth", shutdownHooks)
}
