package revocations

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/server/models"
)

type MemoryRepository struct {
	mu      sync.Mutex
	revoked map[string]models.RevokedToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{revoked: make(map[string]models.RevokedToken)}
}

func (r *MemoryRepository) Revoke(_ context.Context, jti string, userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.revoked[jti]; !ok {
		r.revoked[jti] = models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	}
	return nil
}

func (r *MemoryRepository) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

func (r *MemoryRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, t := range r.revoked {
		if t.ExpiresAt.Before(now) {
			delete(r.revoked, jti)
			n++
		}
	}
	return n, nil
}
