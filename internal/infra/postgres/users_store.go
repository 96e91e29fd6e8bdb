package postgres

import (
	"context"
	"errors"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id::text, email, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "store.CreateUser")
	defer span.End()

	row := s.pool.QueryRow(ctx, `INSERT INTO users (id, email, password_hash)
		VALUES ($1::uuid, $2, $3)
		RETURNING `+userCols, uuid.NewString(), email, passwordHash)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, &domain.ErrConflict{Message: "An account with this email already exists"}
	}
	if err != nil {
		return nil, storageErr("create user", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "store.GetUserByEmail")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+userCols+`
		FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, storageErr("get user by email", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "store.GetUser")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+userCols+`
		FROM users WHERE id = $1::uuid`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return u, nil
}
