package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/auth"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactsapi/internal/server/storage"
)

// UserService changes user profiles: avatars and roles.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       UserCache
	avatars     AvatarStore
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, c UserCache, avatars AvatarStore, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		cache:       c,
		avatars:     avatars,
		log:         log,
	}
}

// UpdateAvatar stores the uploaded image as the avatar of user. contentType
// is the declared type of the upload and must be an image/* type.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, contentType string, r io.Reader) (*models.User, error) {

	if !strings.HasPrefix(contentType, "image/") {
		return nil, common.ErrInvalidImage
	}

	png, err := storage.NormalizeAvatar(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidImage, err)
	}

	url, err := s.avatars.UploadAvatar(ctx, user.ID, png)
	if err != nil {
		return nil, upstream("uploading avatar", err)
	}

	updated, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("storing avatar url", err)
	}
	invalidateUser(ctx, s.cache, s.log, updated.Email)

	return updated, nil
}

// ChangeRole sets the role of the user with targetID. Only admins may do it.
func (s *UserService) ChangeRole(ctx context.Context, actor *models.User, targetID int64, role string) (*models.User, error) {

	if !actor.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}

	updated, err := s.repomanager.Users(s.db).UpdateRole(ctx, targetID, r)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("updating role", err)
	}
	invalidateUser(ctx, s.cache, s.log, updated.Email)

	s.log.Info(ctx, "role changed", "actor_id", actor.ID, "user_id", updated.ID, "role", string(r))
	return updated, nil
}

// SetRoleByEmail changes a role without an acting user. It backs the admin
// command line tool.
func (s *UserService) SetRoleByEmail(ctx context.Context, email, role string) (*models.User, error) {

	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("looking up email", err)
	}

	updated, err := repo.UpdateRole(ctx, user.ID, r)
	if err != nil {
		return nil, upstream("updating role", err)
	}
	invalidateUser(ctx, s.cache, s.log, updated.Email)

	return updated, nil
}

// CreateAdmin inserts an already verified administrator.
func (s *UserService) CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error) {

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:      userName,
		Email:         email,
		Password:      hash,
		EmailVerified: true,
		Role:          models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, upstream("creating user", err)
	}
	invalidateUser(ctx, s.cache, s.log, user.Email)

	return user, nil
}
