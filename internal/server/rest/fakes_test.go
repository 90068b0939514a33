package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeAuth struct {
	users map[string]*models.User // by token

	registerErr  error
	loginToken   string
	loginErr     error
	verifyErr    error
	resetReqErr  error
	resetErr     error
	resetCalls   []string
	resolveCalls int
	resolveErr   error
}

func (f *fakeAuth) Register(_ context.Context, userName, email, _ string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: 10, UserName: userName, Email: email, Password: "hash", Role: models.RoleUser}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeAuth) VerifyEmail(context.Context, string) (*models.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.User{ID: 1, EmailVerified: true}, nil
}

func (f *fakeAuth) RequestPasswordReset(_ context.Context, email string) error {
	f.resetCalls = append(f.resetCalls, email)
	return f.resetReqErr
}

func (f *fakeAuth) ResetPassword(context.Context, string, string) error {
	return f.resetErr
}

func (f *fakeAuth) ResolveCurrentUser(_ context.Context, token string) (*models.User, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	u, ok := f.users[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return u, nil
}

type fakeContacts struct {
	byID       map[int64]models.Contact
	lastFilter models.ContactFilter
	lastPatch  models.ContactPatch
	err        error
}

func (f *fakeContacts) Create(_ context.Context, userID int64, c models.Contact) (*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	c.ID = int64(len(f.byID) + 1)
	c.UserID = userID
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeContacts) Get(_ context.Context, userID, id int64) (*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (f *fakeContacts) List(_ context.Context, userID int64, flt models.ContactFilter) ([]models.Contact, error) {
	f.lastFilter = flt
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Contact
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContacts) Update(ctx context.Context, userID, id int64, p models.ContactPatch) (*models.Contact, error) {
	f.lastPatch = p
	c, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	merged := p.Apply(*c)
	f.byID[id] = merged
	return &merged, nil
}

func (f *fakeContacts) Delete(ctx context.Context, userID, id int64) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeContacts) UpcomingBirthdays(ctx context.Context, userID int64) ([]models.Contact, error) {
	return f.List(ctx, userID, models.ContactFilter{})
}

type fakeUsers struct {
	avatarType string
	avatarBody string
	err        error
}

func (f *fakeUsers) UpdateAvatar(_ context.Context, u *models.User, contentType string, r io.Reader) (*models.User, error) {
	f.avatarType = contentType
	b, _ := io.ReadAll(r)
	f.avatarBody = string(b)
	if f.err != nil {
		return nil, f.err
	}
	out := *u
	url := "http://cdn/avatar.png"
	out.AvatarURL = &url
	return &out, nil
}

func (f *fakeUsers) ChangeRole(_ context.Context, actor *models.User, targetID int64, role string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: targetID, Role: r}, nil
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Check(context.Context) error { return f.err }

type fakeLimiter struct {
	keys []string
	err  error
}

func (f *fakeLimiter) Allow(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	return f.err
}

// --- fixture ---

type apiFixture struct {
	auth     *fakeAuth
	contacts *fakeContacts
	users    *fakeUsers
	health   *fakeHealth
	limiter  ratelimit.Limiter
	registry *prometheus.Registry
	handler  http.Handler
}

var (
	alice = &models.User{ID: 1, UserName: "alice", Email: "alice@example.com", EmailVerified: true, Role: models.RoleUser, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	root  = &models.User{ID: 2, UserName: "root", Email: "root@example.com", EmailVerified: true, Role: models.RoleAdmin}
)

func newAPIFixture(t *testing.T, limiter ratelimit.Limiter) *apiFixture {
	t.Helper()
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(100, time.Minute)
	}
	f := &apiFixture{
		auth:     &fakeAuth{users: map[string]*models.User{"alice-token": alice, "root-token": root}},
		contacts: &fakeContacts{byID: map[int64]models.Contact{}},
		users:    &fakeUsers{},
		health:   &fakeHealth{},
		limiter:  limiter,
		registry: prometheus.NewRegistry(),
	}
	api := NewAPI(Options{
		Auth:        f.auth,
		Contacts:    f.contacts,
		Users:       f.users,
		Health:      f.health,
		MeLimiter:   limiter,
		Metrics:     NewMetrics(f.registry, f.registry),
		CORSOrigins: []string{"http://localhost:8000"},
		Logger:      logging.Nop{},
	})
	f.handler = api.Router()
	return f
}

func (f *apiFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
