package model

import "time"

// Restaurant represents one tenant of the platform. Every staff account,
// dining table and menu entity belongs to exactly one restaurant, and the
// restaurant id is the authorization boundary for tenant-scoped operations.
// This struct corresponds to a row in the `restaurants` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – unique display name of the restaurant.
//	CreatedAt – timestamp when the tenant was onboarded.
//	UpdatedAt – timestamp of last update.
type Restaurant struct {
	ID        uint64    // restaurants.id
	Name      string    // restaurants.name
	CreatedAt time.Time // restaurants.created_at
	UpdatedAt time.Time // restaurants.updated_at
}
