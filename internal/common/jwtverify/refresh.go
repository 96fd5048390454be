package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aldabergenov/auth-service/internal/common/constants"
	commonhttp "github.com/aldabergenov/auth-service/internal/common/http"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/observability/metrics"
)

// TokenStore answers whether the refresh record behind a jti still
// exists. Presence of the row is what makes the token valid.
type TokenStore interface {
	Exists(ctx context.Context, tokenID int64) (bool, error)
}

var errUnexpectedRefreshMethod = errors.New("unexpected signing method")

// RefreshMiddleware is the gate in front of refresh and logout. The
// token is taken from the refreshToken cookie only; refresh tokens are
// never accepted from headers. After signature, issuer and expiry
// checks the jti is looked up in the store: a missing row means the
// token was rotated out, revoked, or never issued, and the request is
// rejected. A store lookup failure also rejects: revocation unproven is
// treated as revoked.
func RefreshMiddleware(secret []byte, store TokenStore, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(constants.RefreshTokenCookieName)
			if err != nil || cookie.Value == "" {
				rejectRefresh(w, r, log, "missing_token", errors.New("no refresh cookie"))
				return
			}

			claims, err := VerifyRefreshToken(cookie.Value, secret)
			if err != nil {
				rejectRefresh(w, r, log, "invalid_token", err)
				return
			}

			tokenID, err := strconv.ParseInt(claims.TokenID, 10, 64)
			if err != nil {
				rejectRefresh(w, r, log, "invalid_token", err)
				return
			}

			exists, err := store.Exists(r.Context(), tokenID)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"token_id": claims.TokenID,
					"action":   "refresh_gate_store_error",
				}).Errorf("revocation lookup failed, failing closed: %v", err)
				rejectRefresh(w, r, log, "storage_error", err)
				return
			}
			if !exists {
				rejectRefresh(w, r, log, "revoked", errors.New("refresh record not found"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withRefreshClaims(r.Context(), claims)))
		})
	}
}

// VerifyRefreshToken checks signature, algorithm, issuer and expiry of a
// refresh token and returns its claims, including the jti. It does not
// consult the store; the middleware owns the revocation check.
func VerifyRefreshToken(tokenString string, secret []byte) (RefreshClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.TokenIssuer),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedRefreshMethod
		}
		return secret, nil
	})
	if err != nil {
		return RefreshClaims{}, err
	}
	if !parsed.Valid {
		return RefreshClaims{}, jwt.ErrTokenUnverifiable
	}

	return refreshClaimsFromToken(parsed)
}

func rejectRefresh(w http.ResponseWriter, r *http.Request, log *logger.Logger, reason string, err error) {
	log.WithFields(r.Context(), logger.Fields{
		"path":   r.URL.Path,
		"reason": reason,
		"action": "refresh_gate_rejected",
	}).Warnf("refresh token rejected: %v", err)

	metrics.RefreshGateRejections.WithLabelValues(reason).Inc()
	commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeUnauthenticated, "authentication required", nil, "")
}
