package service

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	authrepo "github.com/aldabergenov/auth-service/internal/auth/repository"
	"github.com/aldabergenov/auth-service/internal/common/clock"
	"github.com/aldabergenov/auth-service/internal/common/jwtverify"
)

func setupAuthService(t *testing.T) (*AuthService, *mockUserRepo, *mockRefreshTokenRepo, *mockHasher) {
	t.Helper()

	userRepo := &mockUserRepo{}
	tokenRepo := &mockRefreshTokenRepo{}
	hasher := &mockHasher{}

	clk := clock.NewMockClock(time.Now())
	tokens, _ := newTestTokenService(t, tokenRepo, clk)
	svc := NewAuthService(userRepo, tokens, hasher, testLogger(t))
	return svc, userRepo, tokenRepo, hasher
}

func refreshClaimsFor(user authdomain.User, tokenID string) jwtverify.RefreshClaims {
	return jwtverify.RefreshClaims{
		UserID:  "42",
		Email:   user.Email,
		Role:    user.Role,
		TokenID: tokenID,
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, userRepo, _, _ := setupAuthService(t)

	userRepo.createFunc = func(ctx context.Context, user authdomain.User) (authdomain.User, error) {
		if user.Role != "customer" {
			t.Errorf("expected role customer, got %q", user.Role)
		}
		if user.PasswordHash == "password123" {
			t.Error("expected password to be hashed before the repository sees it")
		}
		user.ID = 7
		return user, nil
	}

	result, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Alice",
		LastName:  "Green",
		Email:     "alice@example.com",
		Password:  "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.User.ID != 7 {
		t.Errorf("expected user id 7, got %d", result.User.ID)
	}
	if result.Pair.AccessToken == "" || result.Pair.RefreshToken == "" {
		t.Error("expected both tokens to be set")
	}
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	svc, userRepo, tokenRepo, _ := setupAuthService(t)

	userRepo.createFunc = func(ctx context.Context, user authdomain.User) (authdomain.User, error) {
		return authdomain.User{}, authrepo.ErrEmailAlreadyExists
	}
	tokenRepo.createFunc = func(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
		t.Error("no token row should be created for a failed registration")
		return authdomain.RefreshToken{}, nil
	}

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Alice",
		LastName:  "Green",
		Email:     "alice@example.com",
		Password:  "password123",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected email taken error, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo, _, _ := setupAuthService(t)

	userRepo.findByEmailFunc = func(ctx context.Context, email string) (authdomain.User, error) {
		return testUser(), nil
	}

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.User.ID != 42 {
		t.Errorf("expected user id 42, got %d", result.User.ID)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, userRepo, _, hasher := setupAuthService(t)

	userRepo.findByEmailFunc = func(ctx context.Context, email string) (authdomain.User, error) {
		return testUser(), nil
	}
	hasher.compareFunc = func(hash, password string) error {
		return errors.New("mismatch")
	}

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	svc, userRepo, tokenRepo, _ := setupAuthService(t)
	user := testUser()

	userRepo.findByIDFunc = func(ctx context.Context, id int64) (authdomain.User, error) {
		return user, nil
	}

	var deletedID int64
	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		deletedID = id
		return true, nil
	}
	tokenRepo.createFunc = func(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
		if deletedID != 100 {
			t.Error("old token must be revoked before the new row is created")
		}
		return authdomain.RefreshToken{ID: 101, UserID: userID, ExpiresAt: expiresAt}, nil
	}

	result, err := svc.Refresh(context.Background(), refreshClaimsFor(user, "100"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Pair.RefreshToken == "" {
		t.Error("expected a replacement refresh token")
	}
}

func TestAuthService_Refresh_UserDeleted(t *testing.T) {
	svc, _, tokenRepo, _ := setupAuthService(t)

	deletes := 0
	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		deletes++
		return true, nil
	}

	_, err := svc.Refresh(context.Background(), refreshClaimsFor(testUser(), "100"))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if deletes != 0 {
		t.Error("no rotation should happen when the user is gone")
	}
}

func TestAuthService_Refresh_AlreadyConsumed(t *testing.T) {
	svc, userRepo, tokenRepo, _ := setupAuthService(t)

	userRepo.findByIDFunc = func(ctx context.Context, id int64) (authdomain.User, error) {
		return testUser(), nil
	}
	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		return false, nil
	}
	tokenRepo.createFunc = func(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
		t.Error("no replacement row should be created when the delete lost the race")
		return authdomain.RefreshToken{}, nil
	}

	_, err := svc.Refresh(context.Background(), refreshClaimsFor(testUser(), "100"))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestAuthService_Refresh_RevokeStorageError(t *testing.T) {
	svc, userRepo, tokenRepo, _ := setupAuthService(t)

	userRepo.findByIDFunc = func(ctx context.Context, id int64) (authdomain.User, error) {
		return testUser(), nil
	}
	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		return false, errors.New("connection refused")
	}

	_, err := svc.Refresh(context.Background(), refreshClaimsFor(testUser(), "100"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected storage unavailable, got %v", err)
	}
}

func TestAuthService_Refresh_IssueFailureAfterRevoke(t *testing.T) {
	svc, userRepo, tokenRepo, _ := setupAuthService(t)

	userRepo.findByIDFunc = func(ctx context.Context, id int64) (authdomain.User, error) {
		return testUser(), nil
	}
	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		return true, nil
	}
	tokenRepo.createFunc = func(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
		return authdomain.RefreshToken{}, errors.New("connection refused")
	}

	_, err := svc.Refresh(context.Background(), refreshClaimsFor(testUser(), "100"))
	if !errors.Is(err, ErrRotationFailed) {
		t.Errorf("expected rotation failed, got %v", err)
	}
}

func TestAuthService_Refresh_MalformedTokenID(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	_, err := svc.Refresh(context.Background(), refreshClaimsFor(testUser(), "not-a-number"))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	svc, _, tokenRepo, _ := setupAuthService(t)

	tokenRepo.deleteByIDFunc = func(ctx context.Context, id int64) (bool, error) {
		return false, nil
	}

	if err := svc.Logout(context.Background(), refreshClaimsFor(testUser(), "100")); err != nil {
		t.Errorf("expected logout of a missing token to succeed, got %v", err)
	}
}
