package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func contactNotFound(id int64) errCase {
	return when(common.ErrorNotFound, http.StatusNotFound, fmt.Sprintf("Contact with ID %d not found", id))
}

func contactExists(email string) errCase {
	return when(common.ErrorAlreadyExists, http.StatusBadRequest, fmt.Sprintf("Contact with email %s already exists", email))
}

// contactID parses the {id} path segment.
func contactID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be an integer", common.ErrorValidation)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, name)
	}
	return v, nil
}

func (a *API) createContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	c, err := a.contacts.Create(r.Context(), currentUser(r.Context()).ID, req.toModel())
	if err != nil {
		a.fail(w, r, err, contactExists(req.Email))
		return
	}

	writeJSON(w, http.StatusCreated, toContactResponse(c))
}

func (a *API) listContacts(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	list, err := a.contacts.List(r.Context(), currentUser(r.Context()).ID, models.ContactFilter{
		FirstName: q.Get("first_name"),
		LastName:  q.Get("last_name"),
		Email:     q.Get("email"),
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toContactList(list))
}

func (a *API) upcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	list, err := a.contacts.UpcomingBirthdays(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toContactList(list))
}

func (a *API) getContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	c, err := a.contacts.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		a.fail(w, r, err, contactNotFound(id))
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (a *API) updateContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var req contactUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	c, err := a.contacts.Update(r.Context(), currentUser(r.Context()).ID, id, req.toPatch())
	if err != nil {
		email := ""
		if req.Email != nil {
			email = *req.Email
		}
		a.fail(w, r, err, contactNotFound(id), contactExists(email))
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (a *API) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.contacts.Delete(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		a.fail(w, r, err, contactNotFound(id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
