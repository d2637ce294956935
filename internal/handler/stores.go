package handler

import (
	"context"

	"github.com/iliyamo/restaurant-order-platform/internal/model"
)

// The handlers depend on narrow store interfaces rather than the concrete
// repositories so tests can run against in-memory fakes. The repository
// types satisfy these as-is.

// UserStore is the principal storage consumed by the auth and staff handlers.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, restaurantID *uint64, verified bool, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	MarkEmailVerified(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	ListStaff(ctx context.Context, restaurantID uint64) ([]model.User, error)
	DeleteStaff(ctx context.Context, restaurantID, userID uint64) error
}

// RestaurantStore is the tenant storage consumed by the onboarding handler.
type RestaurantStore interface {
	Create(ctx context.Context, name string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Restaurant, error)
	List(ctx context.Context) ([]model.Restaurant, error)
}

// TableStore is the dining-table storage consumed by the table handler.
type TableStore interface {
	Create(ctx context.Context, restaurantID uint64, label string, capacity uint32) (uint64, error)
	ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.DiningTable, error)
	Delete(ctx context.Context, restaurantID, tableID uint64) error
}
