package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/restaurant-order-platform/internal/model"
)

// RestaurantRepo persists tenants in the `restaurants` table.
type RestaurantRepo struct{ DB *sql.DB }

func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{DB: db} }

// Create inserts a restaurant and returns its ID.
func (r *RestaurantRepo) Create(ctx context.Context, name string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO restaurants (name) VALUES (?)", strings.TrimSpace(name))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a restaurant by id.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (model.Restaurant, error) {
	var t model.Restaurant
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,created_at,updated_at FROM restaurants WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Restaurant{}, ErrNotFound
	}
	return t, err
}

// List returns all tenants, newest first.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,created_at,updated_at FROM restaurants ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		var t model.Restaurant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
