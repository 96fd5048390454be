package service

import (
	"context"
	"errors"
	"strconv"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	authrepo "github.com/aldabergenov/auth-service/internal/auth/repository"
	"github.com/aldabergenov/auth-service/internal/common/constants"
	commoncrypto "github.com/aldabergenov/auth-service/internal/common/crypto"
	"github.com/aldabergenov/auth-service/internal/common/jwtverify"
	"github.com/aldabergenov/auth-service/internal/common/logger"
)

// AuthService coordinates identity establishment and credential pair
// issuance. On refresh it runs the rotation protocol: revoke the
// consumed token first, then issue the replacement pair.
type AuthService struct {
	userRepo authrepo.UserRepository
	tokens   *TokenService
	hasher   commoncrypto.PasswordHasher
	log      *logger.Logger
}

func NewAuthService(
	userRepo authrepo.UserRepository,
	tokens *TokenService,
	hasher commoncrypto.PasswordHasher,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User authdomain.User
	Pair TokenPair
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"email":  input.Email,
		"action": "register_attempt",
	}).Info("register attempt")

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return AuthResult{}, err
	}

	user, err := s.userRepo.Create(ctx, authdomain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         constants.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  input.Email,
				"action": "register_email_exists",
			}).Warn("register failed: email already exists")
			return AuthResult{}, ErrEmailTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "register_create_failed",
		}).Errorf("register failed: %v", err)
		return AuthResult{}, err
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": user.ID,
			"action":  "register_token_issue_failed",
		}).Errorf("register failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": user.ID,
		"action":  "register_success",
	}).Info("register success")

	return AuthResult{User: user, Pair: pair}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"email":  input.Email,
		"action": "login_attempt",
	}).Info("login attempt")

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  input.Email,
				"action": "login_user_not_found",
			}).Warn("login failed: not found")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "login_invalid_password",
		}).Warn("login failed: invalid password")
		return AuthResult{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": user.ID,
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": user.ID,
		"action":  "login_success",
	}).Info("login success")

	return AuthResult{User: user, Pair: pair}, nil
}

// Refresh rotates a verified refresh token: the consumed token's store
// row is deleted before the replacement pair is issued, so the old
// token can never be replayed. Of two concurrent calls presenting the
// same token, only the one whose delete removed the row proceeds.
func (s *AuthService) Refresh(ctx context.Context, claims jwtverify.RefreshClaims) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_attempt",
	}).Info("refresh attempt")

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthResult{}, ErrUnauthenticated.WithCause(err)
	}

	oldTokenID, err := strconv.ParseInt(claims.TokenID, 10, 64)
	if err != nil {
		return AuthResult{}, ErrUnauthenticated.WithCause(err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			// user deleted after the token was issued; do not rotate
			s.log.WithFields(ctx, logger.Fields{
				"user_id": claims.UserID,
				"action":  "refresh_user_missing",
			}).Warn("refresh failed: user no longer exists")
			return AuthResult{}, ErrInvalidState
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.UserID,
			"action":  "refresh_user_lookup_failed",
		}).Errorf("refresh failed: user lookup error: %v", err)
		return AuthResult{}, err
	}

	deleted, err := s.tokens.DeleteRefreshToken(ctx, oldTokenID)
	if err != nil {
		// nothing revoked, nothing issued; safe to just fail
		s.log.WithFields(ctx, logger.Fields{
			"user_id":  user.ID,
			"token_id": claims.TokenID,
			"action":   "refresh_revoke_failed",
		}).Errorf("refresh failed: revoke error: %v", err)
		return AuthResult{}, err
	}
	if !deleted {
		// a concurrent rotation consumed this token first
		s.log.WithFields(ctx, logger.Fields{
			"user_id":  user.ID,
			"token_id": claims.TokenID,
			"action":   "refresh_token_already_consumed",
		}).Warn("refresh failed: token already rotated out")
		return AuthResult{}, ErrUnauthenticated
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		// old token revoked, new pair not delivered; the client must
		// authenticate again
		s.log.WithFields(ctx, logger.Fields{
			"user_id": user.ID,
			"action":  "refresh_issue_failed",
		}).Errorf("refresh failed after revoke: %v", err)
		return AuthResult{}, ErrRotationFailed.WithCause(err)
	}

	incrementRefreshTokensRotated()

	s.log.WithFields(ctx, logger.Fields{
		"user_id": user.ID,
		"action":  "refresh_success",
	}).Info("refresh success")

	return AuthResult{User: user, Pair: pair}, nil
}

// Logout revokes the verified refresh token. Revoking an id that is
// already gone is treated as success.
func (s *AuthService) Logout(ctx context.Context, claims jwtverify.RefreshClaims) error {
	tokenID, err := strconv.ParseInt(claims.TokenID, 10, 64)
	if err != nil {
		return ErrUnauthenticated.WithCause(err)
	}

	if _, err := s.tokens.DeleteRefreshToken(ctx, tokenID); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"token_id": claims.TokenID,
			"action":   "logout_revoke_failed",
		}).Errorf("logout failed: %v", err)
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": claims.UserID,
		"action":  "logout_success",
	}).Info("logout success")

	return nil
}

// Self returns the user behind verified access claims.
func (s *AuthService) Self(ctx context.Context, claims jwtverify.AccessClaims) (authdomain.User, error) {
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return authdomain.User{}, ErrUnauthenticated.WithCause(err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			return authdomain.User{}, ErrInvalidState
		}
		return authdomain.User{}, err
	}

	return user, nil
}
