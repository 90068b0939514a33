package contacts

import (
	"context"

	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

// Repository is the contact ledger. Every method is scoped by the owning
// user id; a contact of another owner behaves as absent.
type Repository interface {
	Create(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Get(ctx context.Context, userID, id int64) (*models.Contact, error)
	List(ctx context.Context, userID int64, f models.ContactFilter) ([]models.Contact, error)
	Update(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID, id int64) error
	ExistsByEmail(ctx context.Context, userID int64, email string, excludeID int64) (bool, error)
	UpcomingBirthdays(ctx context.Context, userID int64, w models.BirthdayWindow) ([]models.Contact, error)
}
