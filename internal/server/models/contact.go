package models

import "time"

// Contact belongs to exactly one user. Email is unique per owner.
// Birthday is a calendar date; only its month and day matter for
// birthday queries.
type Contact struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Birthday       time.Time
	AdditionalData *string
	UserID         int64
}

// ContactPatch carries the fields of a partial update. Nil means "keep".
type ContactPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	Birthday       *time.Time
	AdditionalData *string
}

// Apply returns c with every non-nil field of p replaced. ID and UserID are
// never touched.
func (p ContactPatch) Apply(c Contact) Contact {
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Birthday != nil {
		c.Birthday = *p.Birthday
	}
	if p.AdditionalData != nil {
		v := *p.AdditionalData
		c.AdditionalData = &v
	}
	return c
}

// ContactFilter narrows a contact listing. Non-empty name/email filters are
// case-insensitive substring matches combined with OR.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
	Skip      int
	Limit     int
}

// HasTerms reports whether any text filter is set.
func (f ContactFilter) HasTerms() bool {
	return f.FirstName != "" || f.LastName != "" || f.Email != ""
}
