package domain

import "time"

// AdminRole scopes what a dashboard user is called; it grants nothing by itself.
type AdminRole string

const (
	RoleAdmin     AdminRole = "admin"
	RoleModerator AdminRole = "moderator"
)

// Admin identifies the signed-in dashboard user.
type Admin struct {
	ID        string
	Email     string
	Name      string
	Role      AdminRole
	CreatedAt time.Time
}
