package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/dbx"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func setNow(t *testing.T, ts time.Time) {
	t.Helper()
	old := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = old })
}

func strPtr(s string) *string { return &s }

// --- users ---

type fakeUsersRepo struct {
	byID   map[int64]*models.User
	nextID int64

	// err, when set, is returned by every call.
	err error
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[int64]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, x := range r.byID {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	c := *u
	c.ID = r.nextID
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) GetByVerificationToken(_ context.Context, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (r *fakeUsersRepo) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r *fakeUsersRepo) MarkEmailVerified(_ context.Context, token string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.VerificationToken != nil && *u.VerificationToken == token && !u.EmailVerified {
			u.EmailVerified = true
			u.VerificationToken = nil
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) SetResetToken(_ context.Context, id int64, token string, expiry time.Time) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *fakeUsersRepo) ResetPassword(_ context.Context, token string, now time.Time, hash string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry != nil && !u.ResetTokenExpiry.Before(now) {
			u.Password = hash
			u.ResetToken = nil
			u.ResetTokenExpiry = nil
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) UpdateRole(_ context.Context, id int64, role models.Role) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Role = role
	c := *u
	return &c, nil
}

func (r *fakeUsersRepo) UpdateAvatar(_ context.Context, id int64, url string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.AvatarURL = &url
	c := *u
	return &c, nil
}

// --- contacts ---

type fakeContactsRepo struct {
	byID   map[int64]*models.Contact
	nextID int64
	err    error

	lastFilter models.ContactFilter
	lastWindow models.BirthdayWindow
}

func newFakeContactsRepo(cs ...models.Contact) *fakeContactsRepo {
	r := &fakeContactsRepo{byID: map[int64]*models.Contact{}}
	for _, c := range cs {
		c := c
		r.byID[c.ID] = &c
		if c.ID > r.nextID {
			r.nextID = c.ID
		}
	}
	return r
}

func (r *fakeContactsRepo) owned(userID int64) []models.Contact {
	var out []models.Contact
	for _, c := range r.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeContactsRepo) Create(_ context.Context, c *models.Contact) (*models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.nextID++
	cp := *c
	cp.ID = r.nextID
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeContactsRepo) Get(_ context.Context, userID, id int64) (*models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.byID[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeContactsRepo) List(_ context.Context, userID int64, f models.ContactFilter) ([]models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.lastFilter = f
	all := r.owned(userID)
	if f.Skip >= len(all) {
		return nil, nil
	}
	all = all[f.Skip:]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r *fakeContactsRepo) Update(_ context.Context, c *models.Contact) (*models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	cur, ok := r.byID[c.ID]
	if !ok || cur.UserID != c.UserID {
		return nil, common.ErrorNotFound
	}
	cp := *c
	r.byID[c.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeContactsRepo) Delete(_ context.Context, userID, id int64) error {
	if r.err != nil {
		return r.err
	}
	c, ok := r.byID[id]
	if !ok || c.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeContactsRepo) ExistsByEmail(_ context.Context, userID int64, email string, excludeID int64) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	for _, c := range r.byID {
		if c.UserID == userID && c.ID != excludeID && strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeContactsRepo) UpcomingBirthdays(_ context.Context, userID int64, w models.BirthdayWindow) ([]models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.lastWindow = w
	var out []models.Contact
	for _, c := range r.owned(userID) {
		if w.Contains(c.Birthday) {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeContactsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Contacts(dbx.DBTX) contacts.Repository       { return m.c }

// --- cache ---

type fakeCache struct {
	entries map[string]models.User
	deleted []string

	getErr error
	setErr error
	delErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]models.User{}}
}

func (c *fakeCache) Get(_ context.Context, email string) (*models.User, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	u, ok := c.entries[email]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (c *fakeCache) Set(_ context.Context, u *models.User) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[u.Email] = *u
	return nil
}

func (c *fakeCache) Delete(_ context.Context, email string) error {
	c.deleted = append(c.deleted, email)
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.entries, email)
	return nil
}

// --- mailer ---

type sentMail struct {
	kind, to, userName, token string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerification(_ context.Context, to, userName, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{"verify", to, userName, token})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, userName, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{"reset", to, userName, token})
	return nil
}

// --- avatars ---

type fakeAvatarStore struct {
	uploaded map[int64][]byte
	url      string
	err      error
}

func (s *fakeAvatarStore) UploadAvatar(_ context.Context, userID int64, png []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.uploaded == nil {
		s.uploaded = map[int64][]byte{}
	}
	s.uploaded[userID] = png
	return s.url, nil
}
