package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleInstructor
	RoleStudent
)

// Permission names an action guarded by role checks.
type Permission uint8

const (
	PermEnrollSelf Permission = iota + 1
	PermManageEnrollments
	PermRecordGrades
	PermViewGrades
	PermManageAccounts
	PermManageSections
	PermViewTranscript
)

// ParseRole converts the stored/wire representation into a Role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "INSTRUCTOR":
		return RoleInstructor, nil
	case "STUDENT":
		return RoleStudent, nil
	}
	return 0, fmt.Errorf("unknown role %q", raw)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleInstructor:
		return "INSTRUCTOR"
	case RoleStudent:
		return "STUDENT"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Allows reports whether the role grants p. Every role is matched explicitly;
// an undeclared role grants nothing.
func (r Role) Allows(p Permission) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleInstructor:
		switch p {
		case PermRecordGrades, PermViewGrades, PermViewTranscript, PermManageEnrollments:
			return true
		case PermEnrollSelf, PermManageAccounts, PermManageSections:
			return false
		}
	case RoleStudent:
		switch p {
		case PermEnrollSelf, PermViewGrades, PermViewTranscript:
			return true
		case PermManageEnrollments, PermRecordGrades, PermManageAccounts, PermManageSections:
			return false
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler. The zero role encodes as an
// empty string.
func (r Role) MarshalText() ([]byte, error) {
	if r == 0 {
		return []byte{}, nil
	}
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string decodes
// to the zero role.
func (r *Role) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = 0
		return nil
	}
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
