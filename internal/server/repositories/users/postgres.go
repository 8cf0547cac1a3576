package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/dbx"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User, roleName string) (*models.User, error) {
	query :=
		`INSERT INTO users (email, name, password_hash, role_id)
		 SELECT $1, $2, $3, r.id FROM roles r WHERE r.name = $4
		 RETURNING id, role_id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, roleName).Scan(&user.ID, &user.RoleID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unknown role %q: %w", roleName, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.RoleName = roleName
	return user, nil
}

const selectUser = `SELECT u.id, u.email, u.name, u.password_hash, u.role_id, r.name, u.created_at
		 FROM users u JOIN roles r ON r.id = u.role_id
		 `

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE u.email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE u.id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.RoleID, &user.RoleName, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
