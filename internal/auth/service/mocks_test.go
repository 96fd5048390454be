package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	authrepo "github.com/aldabergenov/auth-service/internal/auth/repository"
	"github.com/aldabergenov/auth-service/internal/common/clock"
	"github.com/aldabergenov/auth-service/internal/common/keys"
	"github.com/aldabergenov/auth-service/internal/common/logger"
)

type mockRefreshTokenRepo struct {
	createFunc         func(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error)
	findByIDFunc       func(ctx context.Context, id int64) (authdomain.RefreshToken, error)
	existsFunc         func(ctx context.Context, id int64) (bool, error)
	deleteByIDFunc     func(ctx context.Context, id int64) (bool, error)
	deleteByUserIDFunc func(ctx context.Context, userID int64) (int64, error)
	deleteExpiredFunc  func(ctx context.Context) (int64, error)
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, expiresAt)
	}
	return authdomain.RefreshToken{ID: 1, UserID: userID, ExpiresAt: expiresAt}, nil
}

func (m *mockRefreshTokenRepo) FindByID(ctx context.Context, id int64) (authdomain.RefreshToken, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepo) Exists(ctx context.Context, id int64) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, id)
	}
	return false, nil
}

func (m *mockRefreshTokenRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return false, nil
}

func (m *mockRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	if m.deleteByUserIDFunc != nil {
		return m.deleteByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockRefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

type mockUserRepo struct {
	createFunc      func(ctx context.Context, user authdomain.User) (authdomain.User, error)
	findByIDFunc    func(ctx context.Context, id int64) (authdomain.User, error)
	findByEmailFunc func(ctx context.Context, email string) (authdomain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user authdomain.User) (authdomain.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = 1
	return user, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (authdomain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (authdomain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	return nil
}

// passthroughBreaker runs the protected call directly.
type passthroughBreaker struct{}

func (passthroughBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return log
}

func writeTestPrivateKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate rsa key: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(t.TempDir(), "private.pem")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}
	return path, key
}

const testRefreshSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T, repo *mockRefreshTokenRepo, clk clock.Clock) (*TokenService, *rsa.PrivateKey) {
	t.Helper()

	keyPath, key := writeTestPrivateKey(t)
	provider := keys.NewProvider(keyPath, "test-key-1", testRefreshSecret)

	svc := NewTokenService(
		repo,
		provider,
		passthroughBreaker{},
		time.Hour,
		365*24*time.Hour,
		clk,
		testLogger(t),
	)
	return svc, key
}

func testUser() authdomain.User {
	return authdomain.User{
		ID:           42,
		FirstName:    "Alice",
		LastName:     "Green",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		Role:         "customer",
	}
}
