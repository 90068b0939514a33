// Package contacts implements the contact ledger on PostgreSQL.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/dbx"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

const contactColumns = `id, first_name, last_name, email, phone, birthday, additional_data, user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {

	query :=
		`INSERT INTO contacts (first_name, last_name, email, phone, birthday, additional_data, user_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, nullString(c.AdditionalData), c.UserID,
	).Scan(&c.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`

	c, err := scanContact(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// List returns the owner's contacts ordered by id. Text filters are matched
// with ILIKE and combined with OR.
func (r *PostgresRepository) List(ctx context.Context, userID int64, f models.ContactFilter) ([]models.Contact, error) {
	var sb strings.Builder
	args := []any{userID}

	sb.WriteString(`SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`)

	var terms []string
	for _, t := range []struct{ column, value string }{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"email", f.Email},
	} {
		if t.value == "" {
			continue
		}
		args = append(args, "%"+escapeLike(t.value)+"%")
		terms = append(terms, fmt.Sprintf("%s ILIKE $%d", t.column, len(args)))
	}
	if len(terms) > 0 {
		sb.WriteString(" AND (" + strings.Join(terms, " OR ") + ")")
	}

	args = append(args, f.Skip, f.Limit)
	fmt.Fprintf(&sb, " ORDER BY id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	return r.query(ctx, sb.String(), args...)
}

// Update overwrites every mutable column of the owner's contact c.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5, phone = $6, birthday = $7, additional_data = $8
		 WHERE id = $1 AND user_id = $2
		 RETURNING ` + contactColumns

	out, err := scanContact(r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, nullString(c.AdditionalData)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
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

// ExistsByEmail reports whether the owner already has a contact with email,
// ignoring the contact excludeID (0 excludes nothing).
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, userID int64, email string, excludeID int64) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE user_id = $1 AND email = $2 AND id <> $3)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// UpcomingBirthdays selects the owner's contacts whose birthday month/day
// falls in w. The birth year is ignored.
func (r *PostgresRepository) UpcomingBirthdays(ctx context.Context, userID int64, w models.BirthdayWindow) ([]models.Contact, error) {
	start, end := w.Start(), w.End()

	var (
		cond string
		args = []any{userID}
	)
	if w.SameMonth() {
		cond = `(EXTRACT(MONTH FROM birthday) = $2 AND EXTRACT(DAY FROM birthday) BETWEEN $3 AND $4)`
		args = append(args, int(start.Month()), start.Day(), end.Day())
	} else {
		cond = `((EXTRACT(MONTH FROM birthday) = $2 AND EXTRACT(DAY FROM birthday) >= $3)
		      OR (EXTRACT(MONTH FROM birthday) = $4 AND EXTRACT(DAY FROM birthday) <= $5))`
		args = append(args, int(start.Month()), start.Day(), int(end.Month()), end.Day())
	}
	args = append(args, w.LeapDayFallback())

	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1 AND (` + cond + fmt.Sprintf(`
		    OR ($%d AND EXTRACT(MONTH FROM birthday) = 2 AND EXTRACT(DAY FROM birthday) = 29))
		 ORDER BY id`, len(args))

	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*models.Contact, error) {
	c := &models.Contact{}
	var note sql.NullString
	if err := s.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthday, &note, &c.UserID); err != nil {
		return nil, err
	}
	if note.Valid {
		v := note.String
		c.AdditionalData = &v
	}
	return c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
