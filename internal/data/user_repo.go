package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// UserRepo provides read access to user accounts. Credit mutations live in
// LedgerRepo.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `
  id,
  name,
  email,
  plan,
  credits,
  created_at,
  updated_at,
  deleted_at
`

// GetByID fetches a user by id. Soft-deleted users are treated as missing.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, id)

	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Plan, &u.Credits,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	return &u, nil
}

// Create inserts a user. Used by the admin seeder and tests.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if !u.Plan.Valid() {
		u.Plan = model.PlanBasic
	}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (name, email, plan, credits)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.Plan, u.Credits,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", apperrors.MapDBError(err))
	}
	return nil
}
