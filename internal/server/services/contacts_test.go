package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContactService(t *testing.T, cs ...models.Contact) (*ContactService, *fakeContactsRepo) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	repo := newFakeContactsRepo(cs...)
	return NewContactService(db, &fakeRepoManager{c: repo}), repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleContact(email string) models.Contact {
	return models.Contact{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     email,
		Phone:     "555-0100",
		Birthday:  date(1990, time.March, 3),
	}
}

func TestContactCreate_DuplicatePerOwner(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, sampleContact("ann@example.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserID)

	_, err = svc.Create(ctx, 1, sampleContact("ann@example.com"))
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}

	_, err = svc.Create(ctx, 2, sampleContact("ann@example.com"))
	require.NoError(t, err, "another owner may use the same email")
}

func TestContactCreate_IgnoresClientOwnerAndID(t *testing.T) {
	svc, _ := newContactService(t)
	in := sampleContact("ann@example.com")
	in.ID = 99
	in.UserID = 42

	c, err := svc.Create(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserID)
	assert.NotEqual(t, int64(99), c.ID)
}

func TestContactGet_OtherOwnerIsNotFound(t *testing.T) {
	c := sampleContact("ann@example.com")
	c.ID, c.UserID = 5, 1
	svc, _ := newContactService(t, c)

	_, err := svc.Get(context.Background(), 2, 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := svc.Get(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got.Email)
}

func TestContactGet_StoreFailure(t *testing.T) {
	svc, repo := newContactService(t)
	repo.err = errors.New("conn reset")

	_, err := svc.Get(context.Background(), 1, 5)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestContactList_Bounds(t *testing.T) {
	svc, repo := newContactService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, 1, models.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastFilter.Limit)

	for _, f := range []models.ContactFilter{
		{Skip: -1, Limit: 10},
		{Limit: -3},
		{Limit: MaxListLimit + 1},
	} {
		_, err := svc.List(ctx, 1, f)
		assert.ErrorIs(t, err, common.ErrorValidation, "filter %+v", f)
	}
}

func TestContactList_Pagination(t *testing.T) {
	var cs []models.Contact
	for i := int64(1); i <= 5; i++ {
		c := sampleContact("")
		c.ID, c.UserID = i, 1
		cs = append(cs, c)
	}
	other := sampleContact("x@example.com")
	other.ID, other.UserID = 6, 2
	cs = append(cs, other)

	svc, _ := newContactService(t, cs...)

	got, err := svc.List(context.Background(), 1, models.ContactFilter{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestContactUpdate_OnlyPhoneChanges(t *testing.T) {
	orig := sampleContact("ann@example.com")
	orig.ID, orig.UserID = 5, 1
	orig.AdditionalData = strPtr("note")
	svc, _ := newContactService(t, orig)

	phone := "555-0199"
	got, err := svc.Update(context.Background(), 1, 5, models.ContactPatch{Phone: &phone})
	require.NoError(t, err)

	want := orig
	want.Phone = phone
	assert.Equal(t, want, *got)
}

func TestContactUpdate_EmailConflict(t *testing.T) {
	a := sampleContact("a@example.com")
	a.ID, a.UserID = 1, 1
	b := sampleContact("b@example.com")
	b.ID, b.UserID = 2, 1
	svc, _ := newContactService(t, a, b)

	taken := "a@example.com"
	_, err := svc.Update(context.Background(), 1, 2, models.ContactPatch{Email: &taken})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	same := "b@example.com"
	_, err = svc.Update(context.Background(), 1, 2, models.ContactPatch{Email: &same})
	assert.NoError(t, err, "keeping the own email is not a conflict")
}

func TestContactUpdate_NotOwned(t *testing.T) {
	c := sampleContact("a@example.com")
	c.ID, c.UserID = 1, 1
	svc, _ := newContactService(t, c)

	phone := "555-0199"
	_, err := svc.Update(context.Background(), 2, 1, models.ContactPatch{Phone: &phone})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestContactDelete(t *testing.T) {
	c := sampleContact("a@example.com")
	c.ID, c.UserID = 1, 1
	svc, repo := newContactService(t, c)

	assert.ErrorIs(t, svc.Delete(context.Background(), 2, 1), common.ErrorNotFound)
	require.NoError(t, svc.Delete(context.Background(), 1, 1))
	assert.Empty(t, repo.byID)
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, 1), common.ErrorNotFound)
}

func TestUpcomingBirthdays(t *testing.T) {
	mk := func(id int64, m time.Month, d int) models.Contact {
		c := sampleContact("")
		c.ID, c.UserID = id, 1
		c.Birthday = date(1985, m, d)
		return c
	}

	tests := []struct {
		name  string
		today time.Time
		in    []models.Contact
		want  []int64
	}{
		{
			name:  "month boundary",
			today: date(2024, time.June, 27),
			in:    []models.Contact{mk(1, time.July, 2), mk(2, time.June, 30), mk(3, time.July, 4), mk(4, time.June, 20)},
			want:  []int64{2, 1},
		},
		{
			name:  "year boundary",
			today: date(2024, time.December, 28),
			in:    []models.Contact{mk(1, time.January, 2), mk(2, time.December, 30), mk(3, time.January, 5), mk(4, time.December, 20)},
			want:  []int64{2, 1},
		},
		{
			name:  "leap day in non-leap year",
			today: date(2023, time.February, 25),
			in:    []models.Contact{mk(1, time.February, 29), mk(2, time.March, 4)},
			want:  []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setNow(t, tt.today.Add(15*time.Hour))
			svc, repo := newContactService(t, tt.in...)

			got, err := svc.UpcomingBirthdays(context.Background(), 1)
			require.NoError(t, err)

			var ids []int64
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, tt.today, repo.lastWindow.Start())
		})
	}
}

func TestUpcomingBirthdays_StoreFailure(t *testing.T) {
	svc, repo := newContactService(t)
	repo.err = errors.New("conn reset")

	got, err := svc.UpcomingBirthdays(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Nil(t, got)
}
