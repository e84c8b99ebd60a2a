package domain

// Role is the capability granted to an authenticated principal.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleTech      Role = "TECH"
	RoleRequester Role = "REQUESTER"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTech || r == RoleRequester
}

// User is the identity directory projection consumed by the engine.
type User struct {
	ID              string
	Username        string
	Email           string
	Role            Role
	IsCriticalActor bool
	Active          bool
}

// IsAdmin reports admin capability.
func IsAdmin(u *User) bool {
	return u != nil && u.Active && u.Role == RoleAdmin
}

// IsTech reports technician capability.
func IsTech(u *User) bool {
	return u != nil && u.Active && u.Role == RoleTech
}

// IsStaff reports technician or admin capability.
func IsStaff(u *User) bool {
	return IsAdmin(u) || IsTech(u)
}

// IsCriticalActor reports whether actions by u are escalated.
func IsCriticalActor(u *User) bool {
	return u != nil && u.IsCriticalActor
}
