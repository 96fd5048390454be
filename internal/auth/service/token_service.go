package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	authrepo "github.com/aldabergenov/auth-service/internal/auth/repository"
	"github.com/aldabergenov/auth-service/internal/common/clock"
	"github.com/aldabergenov/auth-service/internal/common/constants"
	commonerrors "github.com/aldabergenov/auth-service/internal/common/errors"
	"github.com/aldabergenov/auth-service/internal/common/keys"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/common/resilience"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService generates both credential types and owns the refresh
// credential store: it is the only component that creates and destroys
// store rows, which is what ties every jti to exactly one row.
type TokenService struct {
	refreshTokenRepo authrepo.RefreshTokenRepository
	keyProvider      *keys.Provider
	dbCircuitBreaker resilience.CircuitBreakerInterface
	clock            clock.Clock
	log              *logger.Logger
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
}

func NewTokenService(
	refreshTokenRepo authrepo.RefreshTokenRepository,
	keyProvider *keys.Provider,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	clk clock.Clock,
	log *logger.Logger,
) *TokenService {
	return &TokenService{
		refreshTokenRepo: refreshTokenRepo,
		keyProvider:      keyProvider,
		dbCircuitBreaker: dbCircuitBreaker,
		clock:            clk,
		log:              log,
		accessTokenTTL:   accessTokenTTL,
		refreshTokenTTL:  refreshTokenTTL,
	}
}

// GenerateAccessToken signs the user's claims with the RSA private key.
// The kid header points verifiers at the matching JWKS entry.
func (s *TokenService) GenerateAccessToken(user authdomain.User) (string, error) {
	privateKey, err := s.keyProvider.PrivateKey()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"role":  user.Role,
		"iss":   constants.TokenIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.keyProvider.KeyID()

	tokenString, err := t.SignedString(privateKey)
	if err != nil {
		return "", keys.ErrKeyUnavailable.WithCause(err)
	}

	incrementAccessTokensIssued()
	return tokenString, nil
}

// GenerateRefreshToken signs the user's claims plus the jti with the
// shared secret. tokenID must come from PersistRefreshToken.
func (s *TokenService) GenerateRefreshToken(user authdomain.User, tokenID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"role":  user.Role,
		"jti":   tokenID,
		"iss":   constants.TokenIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.refreshTokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.keyProvider.RefreshSecret())
}

// PersistRefreshToken creates the store row backing a refresh token and
// returns it with the assigned id. This is the single source of jtis.
func (s *TokenService) PersistRefreshToken(ctx context.Context, user authdomain.User) (authdomain.RefreshToken, error) {
	expiresAt := s.clock.Now().Add(s.refreshTokenTTL)

	var record authdomain.RefreshToken
	err := s.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.refreshTokenRepo.Create(ctx, user.ID, expiresAt)
		return err
	})
	if err != nil {
		return authdomain.RefreshToken{}, storageError(err)
	}

	incrementRefreshTokensIssued()
	return record, nil
}

// DeleteRefreshToken removes the store row with that id, revoking the
// refresh token carrying it as jti. Reports whether a row was removed;
// deleting an already-missing id is not an error.
func (s *TokenService) DeleteRefreshToken(ctx context.Context, tokenID int64) (bool, error) {
	var deleted bool
	err := s.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.refreshTokenRepo.DeleteByID(ctx, tokenID)
		return err
	})
	if err != nil {
		return false, storageError(err)
	}

	if deleted {
		incrementRefreshTokensRevoked()
	}
	return deleted, nil
}

// IssuePair produces a fresh credential pair for user. The access token
// is generated first so a signing failure cannot leave an orphaned
// store row behind.
func (s *TokenService) IssuePair(ctx context.Context, user authdomain.User) (TokenPair, error) {
	accessToken, err := s.GenerateAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}

	record, err := s.PersistRefreshToken(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := s.GenerateRefreshToken(user, record.TokenID())
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func storageError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrStorageUnavailable.WithCause(err)
	}
	if commonerrors.IsDomainError(err) {
		return err
	}
	return ErrStorageUnavailable.WithCause(err)
}
