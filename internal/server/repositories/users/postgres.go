// Package users implements the user directory on PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/dbx"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

const userColumns = `id, username, email, password, email_verified, verification_token,
		 reset_token, reset_token_expiry, role, avatar_url, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password, email_verified, verification_token, role)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.Password, user.EmailVerified, nullString(user.VerificationToken), string(user.Role),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token)
}

// MarkEmailVerified consumes a verification token and sets the verified flag.
// The token itself is the guard: a token that is gone or already used
// matches no row and yields common.ErrorNotFound.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, token string) (*models.User, error) {
	query :=
		`UPDATE users SET email_verified = TRUE, verification_token = NULL, updated_at = now()
		 WHERE verification_token = $1 AND NOT email_verified
		 RETURNING ` + userColumns
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	query :=
		`UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, token, expiry)
}

// ResetPassword consumes a reset token still valid at now and stores the new
// hash. Only one caller can consume a given token; the others, and callers
// holding an expired or replaced token, get common.ErrorNotFound.
func (r *PostgresRepository) ResetPassword(ctx context.Context, token string, now time.Time, passwordHash string) (*models.User, error) {
	query :=
		`UPDATE users SET password = $3, reset_token = NULL, reset_token_expiry = NULL, updated_at = now()
		 WHERE reset_token = $1 AND reset_token_expiry >= $2
		 RETURNING ` + userColumns
	return r.getOne(ctx, query, token, now, passwordHash)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	return r.getOne(ctx, query, id, string(role))
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id int64, url string) (*models.User, error) {
	query := `UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	return r.getOne(ctx, query, id, url)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}

	var (
		verificationToken sql.NullString
		resetToken        sql.NullString
		resetTokenExpiry  sql.NullTime
		avatarURL         sql.NullString
		role              string
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.UserName, &user.Email, &user.Password, &user.EmailVerified,
		&verificationToken, &resetToken, &resetTokenExpiry, &role, &avatarURL,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	user.VerificationToken = stringPtr(verificationToken)
	user.ResetToken = stringPtr(resetToken)
	user.AvatarURL = stringPtr(avatarURL)
	if resetTokenExpiry.Valid {
		t := resetTokenExpiry.Time
		user.ResetTokenExpiry = &t
	}

	return user, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
