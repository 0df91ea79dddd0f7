package core

import (
	"encoding/json"
	"errors"
	"strings"
)

// Role is a privilege tier. Higher tiers are admitted wherever a lower tier
// is required.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
	RoleOwner
)

var ErrUnknownRole = errors.New("unknown role")

var roleNames = map[Role]string{
	RoleNone:  "",
	RoleUser:  "ROLE_USER",
	RoleAdmin: "ROLE_ADMIN",
	RoleOwner: "ROLE_OWNER",
}

// ParseRole accepts the backend's wire names (ROLE_ADMIN) as well as the
// bare tier names (ADMIN), case-insensitively.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	switch name {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "OWNER":
		return RoleOwner, nil
	}
	return RoleNone, ErrUnknownRole
}

// Level returns the numeric privilege level used for authorization checks.
func (r Role) Level() int {
	return int(r)
}

// AtLeast reports whether r is admitted where required is needed.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

// String returns the wire name (ROLE_USER, ...).
func (r Role) String() string {
	return roleNames[r]
}

// Label returns a short human name for display.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAdmin:
		return "Admin"
	case RoleOwner:
		return "Owner"
	}
	return "Guest"
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON tolerates unknown role names by mapping them to RoleNone so
// a new server-side role never breaks session verification.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, _ := ParseRole(s)
	*r = parsed
	return nil
}
