package users

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
)

// MemoryRepository keeps users in a map. Roles are a fixed name→id table.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.User
	roles  map[string]int64
}

func NewMemoryRepository(roles map[string]int64) *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[int64]*models.User),
		roles: roles,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User, roleName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roleID, ok := r.roles[roleName]
	if !ok {
		return nil, fmt.Errorf("unknown role %q: %w", roleName, common.ErrorNotFound)
	}
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}

	r.nextID++
	user.ID = r.nextID
	user.RoleID = roleID
	user.RoleName = roleName
	user.CreatedAt = time.Now().UTC()

	stored := *user
	r.byID[user.ID] = &stored
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

// SetRole changes a user's role in place.
func (r *MemoryRepository) SetRole(id int64, roleName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	roleID, ok := r.roles[roleName]
	if !ok {
		return common.ErrorNotFound
	}
	u.RoleID, u.RoleName = roleID, roleName
	return nil
}

// Delete removes a user.
func (r *MemoryRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
