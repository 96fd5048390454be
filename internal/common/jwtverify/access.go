package jwtverify

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aldabergenov/auth-service/internal/common/constants"
	commonhttp "github.com/aldabergenov/auth-service/internal/common/http"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/observability/metrics"
)

// KeyResolver supplies the RSA public key for a token's kid header.
type KeyResolver interface {
	ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

var (
	errUnexpectedMethod = errors.New("unexpected signing method")
	errMissingKeyID     = errors.New("token header has no kid")
)

// AccessMiddleware is the gate in front of protected endpoints. It
// accepts the token from the Authorization header first, then the
// accessToken cookie, verifies RS256 signature / issuer / expiry, and
// exposes the claims to the wrapped handler. Every failure is answered
// with the same 401 body; the actual reason only reaches the log.
func AccessMiddleware(resolver KeyResolver, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractAccessToken(r)
			if tokenString == "" {
				rejectAccess(w, r, log, "missing_token", errors.New("no bearer token or cookie"))
				return
			}

			claims, err := VerifyAccessToken(r.Context(), tokenString, resolver)
			if err != nil {
				rejectAccess(w, r, log, "invalid_token", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccessClaims(r.Context(), claims)))
		})
	}
}

// VerifyAccessToken checks signature, algorithm, issuer and expiry of an
// access token and returns its claims.
func VerifyAccessToken(ctx context.Context, tokenString string, resolver KeyResolver) (AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(constants.TokenIssuer),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodRS256 {
			return nil, errUnexpectedMethod
		}

		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKeyID
		}

		return resolver.ResolveKey(ctx, kid)
	})
	if err != nil {
		return AccessClaims{}, err
	}
	if !parsed.Valid {
		return AccessClaims{}, jwt.ErrTokenUnverifiable
	}

	return accessClaimsFromToken(parsed)
}

func extractAccessToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if strings.HasPrefix(raw, "Bearer ") {
		if token := strings.TrimPrefix(raw, "Bearer "); token != "" {
			return token
		}
	}

	cookie, err := r.Cookie(constants.AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func rejectAccess(w http.ResponseWriter, r *http.Request, log *logger.Logger, reason string, err error) {
	log.WithFields(r.Context(), logger.Fields{
		"path":   r.URL.Path,
		"reason": reason,
		"action": "access_gate_rejected",
	}).Warnf("access token rejected: %v", err)

	metrics.AccessGateRejections.WithLabelValues(reason).Inc()
	commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeUnauthenticated, "authentication required", nil, "")
}
