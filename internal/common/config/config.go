package config

import (
	"fmt"
	"os"
	"time"

	"github.com/aldabergenov/auth-service/internal/common/constants"
	commonerrors "github.com/aldabergenov/auth-service/internal/common/errors"
)

type AuthConfig struct {
	HTTPPort       string
	DatabaseURL    string
	RefreshSecret  string
	PrivateKeyPath string
	JWTKeyID       string
	JWKSURI        string
	CookieDomain   string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration
	RequestTimeout time.Duration
}

func LoadAuthConfig() (AuthConfig, error) {
	refreshSecret, err := mustEnv("REFRESH_TOKEN_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}

	if len(refreshSecret) < constants.RefreshSecretMinLength {
		return AuthConfig{}, commonerrors.ErrInvalidRefreshSecret.WithCause(
			fmt.Errorf("got %d bytes", len(refreshSecret)))
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AuthConfig{}, err
	}

	privateKeyPath, err := mustEnv("PRIVATE_KEY_PATH")
	if err != nil {
		return AuthConfig{}, err
	}

	jwksURI, err := mustEnv("JWKS_URI")
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		HTTPPort:       getEnv("AUTH_HTTP_PORT", constants.DefaultAuthHTTPPort),
		DatabaseURL:    databaseURL,
		RefreshSecret:  refreshSecret,
		PrivateKeyPath: privateKeyPath,
		JWTKeyID:       getEnv("JWT_KEY_ID", "auth-service-key-1"),
		JWKSURI:        jwksURI,
		CookieDomain:   getEnv("COOKIE_DOMAIN", constants.DefaultCookieDomain),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", constants.AccessTokenTTL),
		RefreshTTL:     getDurationEnv("REFRESH_TOKEN_TTL", constants.RefreshTokenTTL),
		RequestTimeout: getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultAuthRequestTimeout),
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
