package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills ID and CreatedAt.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (username, password_hash, is_admin, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, u.Username, u.PasswordHash, u.IsAdmin).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByUsername returns user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
        SELECT id, username, password_hash, is_admin, created_at
        FROM users
        WHERE username = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
