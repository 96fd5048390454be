package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	"github.com/aldabergenov/auth-service/internal/common/db"
)

type RefreshTokenRepository interface {
	// Create inserts a row and returns it with the store-assigned id.
	Create(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error)
	FindByID(ctx context.Context, id int64) (authdomain.RefreshToken, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// DeleteByID removes the row if present and reports whether a row
	// was removed. The delete is a single statement, so two concurrent
	// callers for the same id cannot both observe true.
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type PgRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgRefreshTokenRepository(pool *pgxpool.Pool) *PgRefreshTokenRepository {
	return &PgRefreshTokenRepository{pool: pool}
}

func (r *PgRefreshTokenRepository) Create(ctx context.Context, userID int64, expiresAt time.Time) (authdomain.RefreshToken, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO refresh_tokens (user_id, expires_at)
		 VALUES ($1, $2)
		 RETURNING id, user_id, expires_at, created_at, updated_at`,
		userID,
		expiresAt,
	)

	var token authdomain.RefreshToken
	err := row.Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt, &token.UpdatedAt)
	if err := db.HandleQueryError(err, nil, "create refresh token", start); err != nil {
		return authdomain.RefreshToken{}, err
	}
	return token, nil
}

func (r *PgRefreshTokenRepository) FindByID(ctx context.Context, id int64) (authdomain.RefreshToken, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, user_id, expires_at, created_at, updated_at
		 FROM refresh_tokens
		 WHERE id = $1`,
		id,
	)

	var token authdomain.RefreshToken
	err := row.Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt, &token.UpdatedAt)
	if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, "find refresh token", start); err != nil {
		return authdomain.RefreshToken{}, err
	}
	return token, nil
}

func (r *PgRefreshTokenRepository) Exists(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)`,
		id,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, db.HandleQueryError(err, nil, "check refresh token", start)
	}
	db.MeasureQueryDuration("check refresh token", start)
	return exists, nil
}

func (r *PgRefreshTokenRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, db.HandleExecError(err, "delete refresh token", start)
	}
	db.MeasureQueryDuration("delete refresh token", start)
	return res.RowsAffected() > 0, nil
}

func (r *PgRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete refresh tokens by user", start)
	}
	db.MeasureQueryDuration("delete refresh tokens by user", start)
	return res.RowsAffected(), nil
}

func (r *PgRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW()`,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired refresh tokens", start)
	}
	db.MeasureQueryDuration("delete expired refresh tokens", start)
	return res.RowsAffected(), nil
}

var ErrRefreshTokenNotFound = pgx.ErrNoRows
