package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contactsapi/internal/dbx"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so that callers can
// choose between the pool and an open transaction per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
