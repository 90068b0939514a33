package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

// maxAvatarBytes bounds avatar uploads.
const maxAvatarBytes = 10 << 20

func (a *API) updateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		a.fail(w, r, fmt.Errorf("%w: expected a multipart form with a file field", common.ErrorValidation))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: file is required", common.ErrorValidation))
		return
	}
	defer file.Close()

	user, err := a.users.UpdateAvatar(r.Context(), currentUser(r.Context()), header.Header.Get("Content-Type"), file)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (a *API) changeRole(w http.ResponseWriter, r *http.Request) {
	var req roleUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.users.ChangeRole(r.Context(), currentUser(r.Context()), req.UserID, req.Role)
	if err != nil {
		a.fail(w, r, err,
			when(common.ErrorForbidden, http.StatusForbidden, "Only administrators can change user roles"),
			when(common.ErrInvalidRole, http.StatusBadRequest, fmt.Sprintf("Invalid role. Valid roles are: %v", models.ValidRoles())),
			when(common.ErrorNotFound, http.StatusNotFound, "User not found"),
		)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
