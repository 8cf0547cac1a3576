package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/dbx"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager ignores the DBTX argument and always hands out
// the same process-local repositories. Used by tests and -memory mode.
type InMemoryRepositoryManager struct {
	users       *users.MemoryRepository
	revocations *revocations.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users: users.NewMemoryRepository(map[string]int64{
			common.AdminRoleName:   1,
			common.DefaultRoleName: 2,
		}),
		revocations: revocations.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Revocations(dbx.DBTX) revocations.Repository {
	return m.revocations
}

// UserStore exposes the concrete users repository for role changes in tests.
func (m *InMemoryRepositoryManager) UserStore() *users.MemoryRepository {
	return m.users
}
