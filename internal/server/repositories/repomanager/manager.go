package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/archives"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/households"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/members"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/records"
)

// RepositoryManager vends repositories bound to a connection or a
// transaction, so services can run several of them in one unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Households(db dbx.DBTX) households.Repository
	Members(db dbx.DBTX) members.Repository
	Records(db dbx.DBTX) records.Repository
	Archives(db dbx.DBTX) archives.Repository
}
