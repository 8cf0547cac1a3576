package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shelfauth/internal/dbx"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can use
// the same code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Revocations(db dbx.DBTX) revocations.Repository
}
