package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"foldershare/internal/domain"
)

// Permission is an effective access level on a folder or file.
// Levels are totally ordered: Owner > Edit > Read > None.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionRead
	PermissionEdit
	PermissionOwner
)

// Satisfies reports whether p meets or exceeds the required level.
func (p Permission) Satisfies(required Permission) bool {
	return p >= required
}

// IsGrantable reports whether p may be stored on a share grant.
func (p Permission) IsGrantable() bool {
	return p == PermissionRead || p == PermissionEdit
}

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "READ"
	case PermissionEdit:
		return "EDIT"
	case PermissionOwner:
		return "OWNER"
	default:
		return ""
	}
}

// MarshalJSON encodes the level as its name, or null for no access.
func (p Permission) MarshalJSON() ([]byte, error) {
	if p == PermissionNone {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts any level name produced by MarshalJSON.
func (p *Permission) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PermissionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToUpper(s) {
	case "OWNER":
		*p = PermissionOwner
		return nil
	case "":
		*p = PermissionNone
		return nil
	}
	parsed, err := ParseGrantPermission(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseGrantPermission parses a level that can be granted to another user.
// Only READ and EDIT are accepted; ownership is never granted.
func ParseGrantPermission(s string) (Permission, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ":
		return PermissionRead, nil
	case "EDIT":
		return PermissionEdit, nil
	default:
		return PermissionNone, fmt.Errorf("%w: invalid permission %q (must be READ or EDIT)", domain.ErrValidation, s)
	}
}
