package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	authdomain "github.com/aldabergenov/auth-service/internal/auth/domain"
	"github.com/aldabergenov/auth-service/internal/common/db"
)

type UserRepository interface {
	Create(ctx context.Context, user authdomain.User) (authdomain.User, error)
	FindByID(ctx context.Context, id int64) (authdomain.User, error)
	FindByEmail(ctx context.Context, email string) (authdomain.User, error)
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user authdomain.User) (authdomain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, first_name, last_name, email, password_hash, role, created_at, updated_at`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
	)

	var created authdomain.User
	err := row.Scan(
		&created.ID,
		&created.FirstName,
		&created.LastName,
		&created.Email,
		&created.PasswordHash,
		&created.Role,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return authdomain.User{}, ErrEmailAlreadyExists
		}
		return authdomain.User{}, db.HandleQueryError(err, nil, "create user", start)
	}
	db.MeasureQueryDuration("create user", start)
	return created, nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (authdomain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, first_name, last_name, email, password_hash, role, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		id,
	)

	var user authdomain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by id", start); err != nil {
		return authdomain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (authdomain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, first_name, last_name, email, password_hash, role, created_at, updated_at
		 FROM users
		 WHERE email = $1`,
		email,
	)

	var user authdomain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by email", start); err != nil {
		return authdomain.User{}, err
	}
	return user, nil
}

var ErrUserNotFound = pgx.ErrNoRows

var ErrEmailAlreadyExists = errors.New("email already exists")
