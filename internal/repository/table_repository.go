package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-order-platform/internal/model"
)

// TableRepo persists dining tables in the `tables` table. Every query is
// scoped by restaurant_id so rows can never leak across tenants.
type TableRepo struct{ DB *sql.DB }

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{DB: db} }

// Create inserts a dining table for one restaurant and returns its ID.
func (r *TableRepo) Create(ctx context.Context, restaurantID uint64, label string, capacity uint32) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tables (restaurant_id, label, capacity, is_active) VALUES (?,?,?,1)",
		restaurantID, strings.TrimSpace(label), capacity)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrLabelExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByRestaurant returns all tables of one restaurant.
func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.DiningTable, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,restaurant_id,label,capacity,is_active,created_at,updated_at FROM tables WHERE restaurant_id=? ORDER BY id",
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DiningTable
	for rows.Next() {
		var t model.DiningTable
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Label, &t.Capacity, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes a table. The restaurant id is part of the WHERE clause so a
// tenant cannot delete another tenant's table by guessing ids.
func (r *TableRepo) Delete(ctx context.Context, restaurantID, tableID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM tables WHERE id=? AND restaurant_id=?", tableID, restaurantID)
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
