package token

import (
	"qrlogin-svc/src/internal/models"
	"strings"
)

// Role is the closed set of principal roles carried in a credential.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps external input onto the closed role set. Unknown
// values are an explicit error, never a silent downgrade to user.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(value) {
	case string(RoleUser):
		return RoleUser, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", models.ErrUnknownRole
	}
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
