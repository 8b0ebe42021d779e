package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/storefront/internal/auth/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exist")
)

// UserStore persists users and their single outstanding refresh token.
// Default reads never return the refresh token; GetUserWithRefreshToken does.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserWithRefreshToken(ctx context.Context, id string) (*models.User, error)

	// SetRefreshToken overwrites whatever token the user had.
	SetRefreshToken(ctx context.Context, id, token string) error
	// ClearRefreshToken is idempotent and ignores unknown users.
	ClearRefreshToken(ctx context.Context, id string) error
	// ClearRefreshTokenIf clears only while the stored value equals expected.
	ClearRefreshTokenIf(ctx context.Context, id, expected string) (bool, error)

	ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

// UserFilter selects plain users for the back office. Admins are never listed.
type UserFilter struct {
	Search string
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}
