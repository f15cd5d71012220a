package models

// Role is carried in the access token; users themselves live in the auth service.
type Role string

const (
	RoleClient     Role = "client"
	RoleInstructor Role = "instructor"
	RoleStaff      Role = "staff"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// CanManage reports whether the actor may act on bookings owned by others.
func (a Actor) CanManage() bool {
	return a.Role == RoleStaff || a.Role == RoleInstructor
}
