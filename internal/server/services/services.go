// Package services holds the business operations of the contacts API. Each
// service owns a *sql.DB and a repository manager and binds repositories to
// the pool or to a transaction per call.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/google/uuid"
)

// ResetTokenValidity is how long a password reset token stays usable.
const ResetTokenValidity = 24 * time.Hour

var (
	now = time.Now

	newVerificationToken = func() string {
		return uuid.NewString()
	}

	newResetToken = func() (string, error) {
		return common.MakeRandHexString(32)
	}
)

// UserCache is the cache-aside store for users keyed by email.
type UserCache interface {
	Get(ctx context.Context, email string) (*models.User, bool, error)
	Set(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, email string) error
}

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, userName, token string) error
	SendPasswordReset(ctx context.Context, to, userName, token string) error
}

// AvatarStore persists a normalized avatar image and returns its public URL.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID int64, png []byte) (string, error)
}

// upstream marks err as a failure of a backing store or external provider.
// The caller sees ErrorInternal; the detail stays in the chain for logging.
func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}

// invalidateUser is called after every write to a user row. The cache is
// best-effort, so a failed delete is only logged.
func invalidateUser(ctx context.Context, c UserCache, log logging.Logger, email string) {
	if err := c.Delete(ctx, email); err != nil {
		log.Warn(ctx, "user cache invalidation failed", "error", err)
	}
}
