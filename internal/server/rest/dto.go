package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("%w: birthday must be a date in YYYY-MM-DD format", common.ErrorValidation)
	}
	d.Time = t
	return nil
}

type registerRequest struct {
	UserName string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordReset struct {
	Password string `json:"password" validate:"required,min=6,max=50"`
}

type roleUpdate struct {
	UserID int64  `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID            int64     `json:"id"`
	UserName      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	AvatarURL     *string   `json:"avatar_url"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		UserName:      u.UserName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
		AvatarURL:     u.AvatarURL,
	}
}

type contactRequest struct {
	FirstName      string  `json:"first_name" validate:"required,min=1,max=50"`
	LastName       string  `json:"last_name" validate:"required,min=1,max=50"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          string  `json:"phone" validate:"required,min=5,max=20"`
	Birthday       *Date   `json:"birthday" validate:"required"`
	AdditionalData *string `json:"additional_data" validate:"omitempty,max=500"`
}

func (c contactRequest) toModel() models.Contact {
	return models.Contact{
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		Birthday:       c.Birthday.Time,
		AdditionalData: c.AdditionalData,
	}
}

// contactUpdate is a partial update. Absent and null fields are kept.
type contactUpdate struct {
	FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,min=5,max=20"`
	Birthday       *Date   `json:"birthday"`
	AdditionalData *string `json:"additional_data" validate:"omitempty,max=500"`
}

func (c contactUpdate) toPatch() models.ContactPatch {
	p := models.ContactPatch{
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		AdditionalData: c.AdditionalData,
	}
	if c.Birthday != nil {
		b := c.Birthday.Time
		p.Birthday = &b
	}
	return p
}

type contactResponse struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Birthday       Date    `json:"birthday"`
	AdditionalData *string `json:"additional_data"`
}

func toContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		Birthday:       Date{c.Birthday},
		AdditionalData: c.AdditionalData,
	}
}

func toContactList(cs []models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toContactResponse(&cs[i]))
	}
	return out
}
