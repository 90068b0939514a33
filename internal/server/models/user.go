package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles lists the roles accepted by ParseRole, in display order.
func ValidRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidRole, s)
}

// User is an account. Password holds the bcrypt hash only.
// VerificationToken is set while the email is unverified; ResetToken and
// ResetTokenExpiry are set between a reset request and its use.
type User struct {
	ID                int64
	UserName          string
	Email             string
	Password          string
	EmailVerified     bool
	VerificationToken *string
	ResetToken        *string
	ResetTokenExpiry  *time.Time
	Role              Role
	AvatarURL         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ResetTokenExpired reports whether the pending reset token is past its
// expiry at now. A missing expiry counts as expired.
func (u *User) ResetTokenExpired(now time.Time) bool {
	return u.ResetTokenExpiry == nil || now.After(*u.ResetTokenExpiry)
}
