package model

import "time"

// Role names stored in the users.role column and embedded in session tokens.
// DEVELOPER is the platform operator super-role: it has no restaurant of its
// own and bypasses tenant scoping. ADMIN, CASHIER and KITCHEN are staff roles
// bound to exactly one restaurant. CUSTOMER is an ordinary diner account.
const (
	RoleDeveloper = "DEVELOPER"
	RoleAdmin     = "ADMIN"
	RoleCashier   = "CASHIER"
	RoleKitchen   = "KITCHEN"
	RoleCustomer  = "CUSTOMER"
)

// StaffRole reports whether role is one of the restaurant-bound staff roles.
func StaffRole(role string) bool {
	return role == RoleAdmin || role == RoleCashier || role == RoleKitchen
}

// User represents an authenticable principal as stored in the `users` table.
// Each field corresponds to a column. The json tags are omitted because these
// structs are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//
//	ID            – primary key identifier of the principal.
//	Email         – unique, lower-cased email address.
//	PasswordHash  – bcrypt hashed password.
//	Role          – role name (DEVELOPER, ADMIN, CASHIER, KITCHEN, CUSTOMER).
//	RestaurantID  – owning tenant; nil for DEVELOPER and CUSTOMER accounts.
//	EmailVerified – whether control of the email address has been proven.
//	CreatedAt     – timestamp of creation.
//	UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	Role          string    // users.role
	RestaurantID  *uint64   // users.restaurant_id (nullable)
	EmailVerified bool      // users.email_verified
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}
