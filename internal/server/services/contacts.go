package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/repomanager"
)

// Listing bounds for contacts.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ContactService manages the contacts of a single owner per call. A contact
// that belongs to another owner is reported as ErrorNotFound.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager) *ContactService {
	return &ContactService{db: db, repomanager: m}
}

func (s *ContactService) Create(ctx context.Context, userID int64, c models.Contact) (*models.Contact, error) {

	repo := s.repomanager.Contacts(s.db)

	exists, err := repo.ExistsByEmail(ctx, userID, c.Email, 0)
	if err != nil {
		return nil, upstream("checking contact email", err)
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	c.ID = 0
	c.UserID = userID

	created, err := repo.Create(ctx, &c)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, upstream("creating contact", err)
	}
	return created, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id int64) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("getting contact", err)
	}
	return c, nil
}

// List returns a page of contacts. A zero limit means DefaultListLimit.
func (s *ContactService) List(ctx context.Context, userID int64, f models.ContactFilter) ([]models.Contact, error) {

	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must be greater than or equal to 0", common.ErrorValidation)
	}
	if f.Limit < 1 || f.Limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrorValidation, MaxListLimit)
	}

	list, err := s.repomanager.Contacts(s.db).List(ctx, userID, f)
	if err != nil {
		return nil, upstream("listing contacts", err)
	}
	return list, nil
}

// Update merges patch into the stored contact. Changing the email to one
// already used by another contact of the same owner is ErrorAlreadyExists.
func (s *ContactService) Update(ctx context.Context, userID, id int64, patch models.ContactPatch) (*models.Contact, error) {

	repo := s.repomanager.Contacts(s.db)

	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	merged := patch.Apply(*current)

	if merged.Email != current.Email {
		exists, err := repo.ExistsByEmail(ctx, userID, merged.Email, id)
		if err != nil {
			return nil, upstream("checking contact email", err)
		}
		if exists {
			return nil, common.ErrorAlreadyExists
		}
	}

	updated, err := repo.Update(ctx, &merged)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, upstream("updating contact", err)
	}
	return updated, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id int64) error {
	err := s.repomanager.Contacts(s.db).Delete(ctx, userID, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return upstream("deleting contact", err)
	}
	return nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls within
// the next BirthdayWindowDays days, today included, nearest first.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID int64) ([]models.Contact, error) {

	w := models.NewBirthdayWindow(now())

	list, err := s.repomanager.Contacts(s.db).UpcomingBirthdays(ctx, userID, w)
	if err != nil {
		return nil, upstream("querying birthdays", err)
	}

	sort.SliceStable(list, func(i, j int) bool {
		oi, _ := w.Offset(list[i].Birthday)
		oj, _ := w.Offset(list[j].Birthday)
		return oi < oj
	})
	return list, nil
}
