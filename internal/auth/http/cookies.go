package http

import (
	"net/http"

	"github.com/aldabergenov/auth-service/internal/auth/service"
	"github.com/aldabergenov/auth-service/internal/common/constants"
)

// setAuthCookies writes both tokens in one response. Callers must pass a
// fully issued pair; a partial pair must never reach the client.
func setAuthCookies(w http.ResponseWriter, domain string, pair service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   domain,
		MaxAge:   constants.AccessTokenCookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   domain,
		MaxAge:   constants.RefreshTokenCookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter, domain string) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
