package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/utils"
)

// UserRepo persists principals in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,restaurant_id,email_verified,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u   model.User
		rid sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &rid, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if rid.Valid {
		v := uint64(rid.Int64)
		u.RestaurantID = &v
	}
	return u, nil
}

// Create inserts a principal and returns its ID. The email is normalized to
// lower case before insertion; restaurantID may be nil for accounts that do
// not belong to a tenant (customers and platform operators).
func (r *UserRepo) Create(ctx context.Context, email, password, role string, restaurantID *uint64, verified bool, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var rid sql.NullInt64
	if restaurantID != nil {
		rid = sql.NullInt64{Int64: int64(*restaurantID), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, restaurant_id, email_verified) VALUES (?,?,?,?,?)",
		email, hash, role, rid, verified)
	if err != nil {
		// MySQL duplicate-key errors carry code 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a principal by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a principal by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// MarkEmailVerified flips the email_verified flag after a successful
// verification-code consume.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email_verified=1 WHERE id=?", id)
	return err
}

// UpdatePassword replaces the stored hash after a completed password reset.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// ListStaff returns all staff principals of one restaurant.
func (r *UserRepo) ListStaff(ctx context.Context, restaurantID uint64) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE restaurant_id=? ORDER BY id", restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u   model.User
			rid sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &rid, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if rid.Valid {
			v := uint64(rid.Int64)
			u.RestaurantID = &v
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteStaff removes a staff principal. The restaurant id is part of the
// WHERE clause so a tenant can never delete another tenant's staff even if it
// guesses a valid user id.
func (r *UserRepo) DeleteStaff(ctx context.Context, restaurantID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE id=? AND restaurant_id=?", userID, restaurantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
