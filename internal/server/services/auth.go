package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/dbx"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/auth"
	"github.com/dmitrijs2005/contactsapi/internal/server/config"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/repomanager"
)

// AuthService runs registration, login, email verification, password reset
// and bearer-token resolution. Resolved users are cached by email; every
// mutation of a user drops its cache entry.
type AuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	cache                       UserCache
	mailer                      Mailer
	log                         logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, c UserCache, mailer Mailer, log logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                          db,
		repomanager:                 m,
		cache:                       c,
		mailer:                      mailer,
		log:                         log,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates an unverified user and mails the verification link. The
// insert is rolled back when the email cannot be sent.
func (s *AuthService) Register(ctx context.Context, userName, email, password string) (*models.User, error) {

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, upstream("looking up email", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	token := newVerificationToken()
	user := &models.User{
		UserName:          userName,
		Email:             email,
		Password:          hash,
		VerificationToken: &token,
		Role:              models.RoleUser,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return err
			}
			return upstream("creating user", err)
		}
		user = created

		if err := s.mailer.SendVerification(ctx, user.Email, user.UserName, token); err != nil {
			return upstream("sending verification email", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorInternal) {
			return nil, err
		}
		return nil, upstream("registering user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user for a matching email and password. A missing
// email and a wrong password both yield ErrorUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, upstream("looking up email", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, common.ErrorUnauthorized
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// Login authenticates and issues an access token with the configured
// lifetime. Unverified users get ErrEmailNotVerified.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	if !user.EmailVerified {
		return "", common.ErrEmailNotVerified
	}

	return s.CreateAccessToken(user.Email, s.accessTokenValidityDuration)
}

// CreateAccessToken signs a token for email. A non-positive ttl falls back
// to auth.DefaultTokenValidity.
func (s *AuthService) CreateAccessToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = auth.DefaultTokenValidity
	}
	token, err := auth.GenerateToken(email, s.jwtSecret, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("looking up verification token", err)
	}

	if user.EmailVerified {
		return nil, common.ErrEmailAlreadyVerified
	}

	// A concurrent verification may consume the token first.
	updated, err := repo.MarkEmailVerified(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("marking email verified", err)
	}
	s.InvalidateCache(ctx, updated.Email)
	s.cacheUser(ctx, updated)

	return updated, nil
}

// RequestPasswordReset stores a fresh reset token and mails it when email
// belongs to a user. Unknown emails are silently ignored, and so are mail
// delivery failures.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return upstream("looking up email", err)
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := repo.SetResetToken(ctx, user.ID, token, now().Add(ResetTokenValidity)); err != nil {
		return upstream("storing reset token", err)
	}
	s.InvalidateCache(ctx, user.Email)

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.UserName, token); err != nil {
		s.log.Error(ctx, "sending password reset email failed", "user_id", user.ID, "error", err)
	}

	return nil
}

// ResetPassword replaces the password of the user holding token. An expired
// token leaves the user untouched.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return upstream("looking up reset token", err)
	}

	if user.ResetTokenExpired(now()) {
		return common.ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	// The write rechecks token and expiry, so a token consumed or replaced
	// since the lookup changes nothing.
	updated, err := repo.ResetPassword(ctx, token, now(), hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return upstream("storing password", err)
	}
	s.InvalidateCache(ctx, updated.Email)

	return nil
}

// ResolveCurrentUser maps a bearer token to its user, reading through the
// cache. Every failure to establish identity is ErrorUnauthorized.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*models.User, error) {

	email, err := auth.GetSubjectFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	cached, found, err := s.cache.Get(ctx, email)
	if err != nil {
		s.log.Warn(ctx, "user cache read failed", "error", err)
	} else if found {
		return cached, nil
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, upstream("looking up email", err)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// InvalidateCache drops the cached entry for email. Failures are logged.
func (s *AuthService) InvalidateCache(ctx context.Context, email string) {
	invalidateUser(ctx, s.cache, s.log, email)
}

func (s *AuthService) cacheUser(ctx context.Context, u *models.User) {
	if err := s.cache.Set(ctx, u); err != nil {
		s.log.Warn(ctx, "user cache write failed", "error", err)
	}
}
