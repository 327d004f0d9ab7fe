package entities

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     string    `db:"full_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// Membership binds a user to their active organization with a role.
// One active membership per user; switching organizations deactivates
// the previous row.
type Membership struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	OrganizationID int64     `db:"organization_id"`
	Role           Role      `db:"role"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
}
