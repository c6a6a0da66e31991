package repository

import (
	"context"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
)

// UserRepository defines the interface for user data storage operations
type UserRepository interface {
	// CreateUser creates a user with the given password hash
	CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error)

	// GetUserByEmail retrieves a user and password hash by email
	GetUserByEmail(ctx context.Context, email string) (*domain.User, string, error)

	// GetUserByID retrieves a user by primary key
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}
