package constants

import "time"

const (
	TokenIssuer = "auth-service"

	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"

	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour

	AccessTokenCookieMaxAge  = 3600
	RefreshTokenCookieMaxAge = 31536000

	RefreshSecretMinLength = 32
	BcryptCost             = 10

	PasswordMinLength = 8
	PasswordMaxLength = 72

	JWKSCacheTTL          = 10 * time.Minute
	JWKSRequestTimeout    = 5 * time.Second
	JWKSRequestsPerSecond = 2
	JWKSRequestBurst      = 5

	DefaultMaxRequestSize = 1 << 20

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultAuthHTTPPort       = "8081"
	DefaultAuthRequestTimeout = 5 * time.Second
	DefaultCookieDomain       = "localhost"

	CleanupInterval = time.Hour

	RateLimitCleanupInterval = 5 * time.Minute

	RateLimitLoginRequestsPerSecond    = 1
	RateLimitLoginBurst                = 5
	RateLimitRegisterRequestsPerSecond = 0.5
	RateLimitRegisterBurst             = 3
	RateLimitRefreshRequestsPerSecond  = 1
	RateLimitRefreshBurst              = 5
	RateLimitLogoutRequestsPerSecond   = 1
	RateLimitLogoutBurst               = 5
	RateLimitGeneralRequestsPerSecond  = 10
	RateLimitGeneralBurst              = 20

	DefaultCircuitBreakerThreshold = 500
	DefaultCircuitBreakerTimeout   = 15 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

const RoleCustomer = "customer"

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
