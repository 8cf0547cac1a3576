// Package users declares the server-side repository contract for accounts
// and their roles.
package users

import (
	"context"

	"github.com/dmitrijs2005/shelfauth/internal/server/models"
)

type Repository interface {
	// Create inserts the user with the named role. ID, RoleID and CreatedAt
	// are filled from the database. A taken email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User, roleName string) (*models.User, error)

	// GetByEmail and GetByID return common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
