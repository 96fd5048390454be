package jwtverify

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aldabergenov/auth-service/internal/common/logger"
)

type mockResolver struct {
	resolveFunc func(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

func (m *mockResolver) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, kid)
	}
	return nil, jwt.ErrTokenUnverifiable
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return log
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate rsa key: %v", err)
	}
	return key
}

func accessClaims(now time.Time, ttl time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "42",
		"email": "alice@example.com",
		"role":  "customer",
		"iss":   "auth-service",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func signHS256(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func resolverFor(key *rsa.PrivateKey, expectedKid string) *mockResolver {
	return &mockResolver{
		resolveFunc: func(ctx context.Context, kid string) (*rsa.PublicKey, error) {
			if kid != expectedKid {
				return nil, jwt.ErrTokenUnverifiable
			}
			return &key.PublicKey, nil
		},
	}
}

func runAccessGate(t *testing.T, resolver KeyResolver, prepare func(r *http.Request)) (*httptest.ResponseRecorder, *AccessClaims) {
	t.Helper()

	var seen *AccessClaims
	handler := AccessMiddleware(resolver, testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := AccessFromContext(r.Context()); ok {
			seen = &claims
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	prepare(req)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAccessGate_ValidBearerToken(t *testing.T) {
	key := generateKey(t)
	token := signRS256(t, key, "key-1", accessClaims(time.Now(), time.Hour))

	rec, seen := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("expected claims in context")
	}
	if seen.UserID != "42" || seen.Email != "alice@example.com" || seen.Role != "customer" {
		t.Errorf("unexpected claims: %+v", seen)
	}
}

func TestAccessGate_ValidCookieToken(t *testing.T) {
	key := generateKey(t)
	token := signRS256(t, key, "key-1", accessClaims(time.Now(), time.Hour))

	rec, seen := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("expected claims in context")
	}
}

func TestAccessGate_MissingToken(t *testing.T) {
	key := generateKey(t)

	rec, _ := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_RejectsHS256(t *testing.T) {
	key := generateKey(t)
	// an attacker signing with the public key bytes as HMAC secret must
	// not get past an RS256-only verifier
	token := signHS256(t, []byte("any-secret"), accessClaims(time.Now(), time.Hour))

	rec, _ := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_ExpiredToken(t *testing.T) {
	key := generateKey(t)
	token := signRS256(t, key, "key-1", accessClaims(time.Now().Add(-2*time.Hour), time.Hour))

	rec, _ := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_MissingKid(t *testing.T) {
	key := generateKey(t)
	token := signRS256(t, key, "", accessClaims(time.Now(), time.Hour))

	rec, _ := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_WrongIssuer(t *testing.T) {
	key := generateKey(t)
	claims := accessClaims(time.Now(), time.Hour)
	claims["iss"] = "someone-else"
	token := signRS256(t, key, "key-1", claims)

	rec, _ := runAccessGate(t, resolverFor(key, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_WrongKey(t *testing.T) {
	signingKey := generateKey(t)
	otherKey := generateKey(t)
	token := signRS256(t, signingKey, "key-1", accessClaims(time.Now(), time.Hour))

	rec, _ := runAccessGate(t, resolverFor(otherKey, "key-1"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccessGate_UniformRejectionBody(t *testing.T) {
	key := generateKey(t)
	expired := signRS256(t, key, "key-1", accessClaims(time.Now().Add(-2*time.Hour), time.Hour))

	cases := map[string]func(r *http.Request){
		"missing": func(r *http.Request) {},
		"garbage": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-jwt")
		},
		"expired": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+expired)
		},
	}

	var bodies []map[string]any
	for name, prepare := range cases {
		rec, _ := runAccessGate(t, resolverFor(key, "key-1"), prepare)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid json body: %v", name, err)
		}
		bodies = append(bodies, body)
	}

	for i := 1; i < len(bodies); i++ {
		if bodies[i]["code"] != bodies[0]["code"] || bodies[i]["message"] != bodies[0]["message"] {
			t.Errorf("rejection bodies differ: %v vs %v", bodies[0], bodies[i])
		}
	}
}
