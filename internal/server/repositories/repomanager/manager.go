package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/securefiles/internal/dbx"
	"github.com/dmitrijs2005/securefiles/internal/server/repositories/securefiles"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	SecureFiles(db dbx.DBTX) securefiles.Repository
}
