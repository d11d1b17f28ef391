package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone, is_staff FROM users WHERE id = $1 AND is_active`, id,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.IsStaff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return &u, nil
}
