package user

import (
	"context"
)

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Update(ctx context.Context, u *User) error // Name, Role, IsActive
	ListActive(ctx context.Context) ([]*User, error)
	ListActiveByRoles(ctx context.Context, roles []string) ([]*User, error)
	ListActiveByIDs(ctx context.Context, ids []int64) ([]*User, error)
	ListAll(ctx context.Context) ([]*User, error)
}
