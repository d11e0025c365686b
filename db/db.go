package db

import (
	"errors"

	"github.com/yeauxdejuan/seen/models"
)

// ErrNotFound is returned when no user matches the lookup
var ErrNotFound = errors.New("user not found")

// Database is the user-lookup collaborator contract. Everything beyond
// it (schemas, indexes, persistence) stays outside the auth core.
type Database interface {
	EmailExists(email string) (bool, error)
	FindByEmail(email string) (models.User, error)
	FindByID(id string) (models.User, error)

	CreateUser(user CreateUser) (models.User, error)
	SaveUser(user models.User) error
}

type CreateUser struct {
	Email        string
	PasswordHash string
	Salt         string
	Role         models.Role
}
