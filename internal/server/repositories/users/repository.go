package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, token string) (*models.User, error)
	SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, token string, now time.Time, passwordHash string) (*models.User, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error)
	UpdateAvatar(ctx context.Context, id int64, url string) (*models.User, error)
}
