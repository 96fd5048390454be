package domain

import (
	"strconv"
	"time"
)

// RefreshToken is one row of the refresh credential store. The row id,
// assigned by the store, becomes the jti claim of the refresh token it
// backs; the row existing is what keeps that token valid.
type RefreshToken struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenID is the jti form of the row id.
func (t RefreshToken) TokenID() string {
	return strconv.FormatInt(t.ID, 10)
}
