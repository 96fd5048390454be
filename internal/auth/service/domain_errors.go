package service

import (
	"net/http"

	commonerrors "github.com/aldabergenov/auth-service/internal/common/errors"
)

var (
	// ErrUnauthenticated is the uniform failure for anything a client
	// did wrong with a credential. Expired, revoked and malformed all
	// look the same from outside.
	ErrUnauthenticated = commonerrors.NewDomainError(
		"UNAUTHENTICATED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"authentication required",
	)

	// ErrInvalidState means a verified credential references a user
	// that no longer exists.
	ErrInvalidState = commonerrors.NewDomainError(
		"INVALID_STATE",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"authentication required",
	)

	// ErrRotationFailed means the old refresh token was revoked but the
	// replacement pair was not delivered. The client has to log in
	// again.
	ErrRotationFailed = commonerrors.NewDomainError(
		"ROTATION_FAILED",
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		"failed to refresh session",
	)

	ErrStorageUnavailable = commonerrors.NewDomainError(
		"STORAGE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)

	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	ErrEmailTaken = commonerrors.NewDomainError(
		"EMAIL_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusBadRequest,
		"email already exists",
	)
)
