// Package rest exposes the contacts API over HTTP with chi.
package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AuthService is the account side of the API.
type AuthService interface {
	Register(ctx context.Context, userName, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ResolveCurrentUser(ctx context.Context, token string) (*models.User, error)
}

type ContactService interface {
	Create(ctx context.Context, userID int64, c models.Contact) (*models.Contact, error)
	Get(ctx context.Context, userID, id int64) (*models.Contact, error)
	List(ctx context.Context, userID int64, f models.ContactFilter) ([]models.Contact, error)
	Update(ctx context.Context, userID, id int64, patch models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, userID, id int64) error
	UpcomingBirthdays(ctx context.Context, userID int64) ([]models.Contact, error)
}

type UserService interface {
	UpdateAvatar(ctx context.Context, user *models.User, contentType string, r io.Reader) (*models.User, error)
	ChangeRole(ctx context.Context, actor *models.User, targetID int64, role string) (*models.User, error)
}

type HealthChecker interface {
	Check(ctx context.Context) error
}

// Options configures an API.
type Options struct {
	Auth     AuthService
	Contacts ContactService
	Users    UserService
	Health   HealthChecker
	// MeLimiter throttles GET /api/auth/me.
	MeLimiter   ratelimit.Limiter
	Metrics     *Metrics
	CORSOrigins []string
	Logger      logging.Logger
}

// API holds the HTTP handlers and their dependencies.
type API struct {
	auth      AuthService
	contacts  ContactService
	users     UserService
	health    HealthChecker
	meLimiter ratelimit.Limiter
	metrics   *Metrics
	origins   []string
	logger    logging.Logger
}

func NewAPI(o Options) *API {
	return &API{
		auth:      o.Auth,
		contacts:  o.Contacts,
		users:     o.Users,
		health:    o.Health,
		meLimiter: o.MeLimiter,
		metrics:   o.Metrics,
		origins:   o.CORSOrigins,
		logger:    o.Logger.With("module", "rest"),
	}
}

// Router builds the HTTP routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(a.recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", a.root)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthchecker", a.healthchecker)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.register)
			r.Post("/login", a.login)
			r.Get("/verify/{token}", a.verifyEmail)
			r.Post("/request-password-reset", a.requestPasswordReset)
			r.Post("/reset-password/{token}", a.resetPassword)
			r.Get("/me", a.me)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(a.authenticate)
			r.Post("/", a.createContact)
			r.Get("/", a.listContacts)
			r.Get("/birthdays", a.upcomingBirthdays)
			r.Get("/{id}", a.getContact)
			r.Put("/{id}", a.updateContact)
			r.Delete("/{id}", a.deleteContact)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(a.authenticate)
			r.Patch("/avatar", a.updateAvatar)
			r.Post("/role", a.changeRole)
		})
	})

	return r
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Contacts API v1.0"})
}

func (a *API) healthchecker(w http.ResponseWriter, r *http.Request) {
	if err := a.health.Check(r.Context()); err != nil {
		a.logger.Error(r.Context(), "healthcheck failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Unexpected error during healthcheck call to the database")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Welcome to Contacts API!"})
}
