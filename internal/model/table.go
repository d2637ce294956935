package model

import "time"

// DiningTable describes a physical table inside a restaurant. Tables are the
// unit customers order against and are managed by the owning tenant's staff.
// Named DiningTable because `table` collides with SQL vocabulary everywhere.
//
// Fields:
//
//	ID           – primary key identifier.
//	RestaurantID – owning tenant.
//	Label        – human-readable table label unique per restaurant (e.g. "T12").
//	Capacity     – number of seats at the table.
//	IsActive     – whether the table is currently in service.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type DiningTable struct {
	ID           uint64    // tables.id
	RestaurantID uint64    // tables.restaurant_id
	Label        string    // tables.label
	Capacity     uint32    // tables.capacity
	IsActive     bool      // tables.is_active
	CreatedAt    time.Time // tables.created_at
	UpdatedAt    time.Time // tables.updated_at
}
