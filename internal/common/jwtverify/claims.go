package jwtverify

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the verified payload of an access token.
type AccessClaims struct {
	UserID string
	Email  string
	Role   string
}

// RefreshClaims is the verified payload of a refresh token. TokenID is
// the jti claim, the decimal form of the backing store row id.
type RefreshClaims struct {
	UserID  string
	Email   string
	Role    string
	TokenID string
}

type contextKey string

const (
	accessClaimsKey  contextKey = "access_claims"
	refreshClaimsKey contextKey = "refresh_claims"
)

var (
	errInvalidClaimsType = errors.New("invalid claims type")
	errMissingSubject    = errors.New("missing sub claim")
	errMissingTokenID    = errors.New("missing jti claim")
)

func AccessFromContext(ctx context.Context) (AccessClaims, bool) {
	claims, ok := ctx.Value(accessClaimsKey).(AccessClaims)
	return claims, ok
}

func RefreshFromContext(ctx context.Context) (RefreshClaims, bool) {
	claims, ok := ctx.Value(refreshClaimsKey).(RefreshClaims)
	return claims, ok
}

func withAccessClaims(ctx context.Context, claims AccessClaims) context.Context {
	return context.WithValue(ctx, accessClaimsKey, claims)
}

func withRefreshClaims(ctx context.Context, claims RefreshClaims) context.Context {
	return context.WithValue(ctx, refreshClaimsKey, claims)
}

func accessClaimsFromToken(parsed *jwt.Token) (AccessClaims, error) {
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, errInvalidClaimsType
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return AccessClaims{}, errMissingSubject
	}

	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return AccessClaims{
		UserID: sub,
		Email:  email,
		Role:   role,
	}, nil
}

func refreshClaimsFromToken(parsed *jwt.Token) (RefreshClaims, error) {
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return RefreshClaims{}, errInvalidClaimsType
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return RefreshClaims{}, errMissingSubject
	}

	jti, _ := mapClaims["jti"].(string)
	if jti == "" {
		return RefreshClaims{}, errMissingTokenID
	}

	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return RefreshClaims{
		UserID:  sub,
		Email:   email,
		Role:    role,
		TokenID: jti,
	}, nil
}
