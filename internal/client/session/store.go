// Package session persists the client's tokens and principal snapshot.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/shelfauth/internal/client/models"
	"github.com/dmitrijs2005/shelfauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfauth/internal/dbx"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyPrincipal    = "principal"
)

// Store reads and writes the session. Each key write is atomic; Save and
// Clear touch all keys inside one transaction when backed by SQLite.
type Store struct {
	db   *sql.DB
	repo metadata.Repository
}

// NewSQLiteStore keeps the session in the metadata table of db.
func NewSQLiteStore(db *sql.DB) *Store {
	return &Store{db: db, repo: metadata.NewSQLiteRepository(db)}
}

// NewStore keeps the session in repo, e.g. metadata.NewMemoryRepository().
func NewStore(repo metadata.Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) atomically(ctx context.Context, fn func(ctx context.Context, repo metadata.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.repo)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, metadata.NewSQLiteRepository(tx))
	})
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, KeyAccessToken)
	return string(v), err
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, KeyRefreshToken)
	return string(v), err
}

// Principal returns nil when no snapshot is stored.
func (s *Store) Principal(ctx context.Context) (*models.Principal, error) {
	v, err := s.repo.Get(ctx, KeyPrincipal)
	if err != nil || v == nil {
		return nil, err
	}
	var p models.Principal
	if err := json.Unmarshal(v, &p); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	return &p, nil
}

// Load returns the whole session; a logged-out client gets a zero Session.
func (s *Store) Load(ctx context.Context) (models.Session, error) {
	var (
		sess models.Session
		err  error
	)
	if sess.AccessToken, err = s.AccessToken(ctx); err != nil {
		return models.Session{}, err
	}
	if sess.RefreshToken, err = s.RefreshToken(ctx); err != nil {
		return models.Session{}, err
	}
	if sess.Principal, err = s.Principal(ctx); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Save replaces the stored session.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	var principal []byte
	if sess.Principal != nil {
		b, err := json.Marshal(sess.Principal)
		if err != nil {
			return fmt.Errorf("encode principal: %w", err)
		}
		principal = b
	}

	return s.atomically(ctx, func(ctx context.Context, repo metadata.Repository) error {
		if err := repo.Set(ctx, KeyAccessToken, []byte(sess.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, KeyRefreshToken, []byte(sess.RefreshToken)); err != nil {
			return err
		}
		if principal == nil {
			return repo.Delete(ctx, KeyPrincipal)
		}
		return repo.Set(ctx, KeyPrincipal, principal)
	})
}

// SetPrincipal replaces the principal snapshot, leaving the tokens alone.
func (s *Store) SetPrincipal(ctx context.Context, p models.Principal) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	return s.repo.Set(ctx, KeyPrincipal, b)
}

// SetAccessToken replaces the access token in place after a refresh.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.repo.Set(ctx, KeyAccessToken, []byte(token))
}

// Clear removes both tokens and the principal. Clearing an empty store is
// not an error.
func (s *Store) Clear(ctx context.Context) error {
	return s.atomically(ctx, func(ctx context.Context, repo metadata.Repository) error {
		for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyPrincipal} {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
