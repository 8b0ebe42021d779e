package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgdb "github.com/Skotchmaster/storefront/pkg/db"

	"github.com/Skotchmaster/storefront/internal/auth/models"
)

const refreshTokenColumn = "refresh_token"

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if pkgdb.IsUniqueViolation(err) {
			return ErrUserAlreadyExist
		}
		return err
	}
	u.RefreshToken = nil
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.DB.WithContext(ctx).Omit(refreshTokenColumn).Where("email = ?", email))
}

func (r *GormRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(r.DB.WithContext(ctx).Omit(refreshTokenColumn).Where("id = ?", id))
}

func (r *GormRepo) GetUserWithRefreshToken(ctx context.Context, id string) (*models.User, error) {
	return r.first(r.DB.WithContext(ctx).Where("id = ?", id))
}

func (r *GormRepo) first(q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update(refreshTokenColumn, token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update(refreshTokenColumn, gorm.Expr("NULL")).Error
}

func (r *GormRepo) ClearRefreshTokenIf(ctx context.Context, id, expected string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		Update(refreshTokenColumn, gorm.Expr("NULL"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filtered := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&models.User{}).Where("role <> ?", models.RoleAdmin)
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", like, like)
		}
		if f.From != nil {
			q = q.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where("created_at <= ?", *f.To)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0, f.Limit)
	if err := filtered().Omit(refreshTokenColumn).
		Order("created_at DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&n).Error
	return n, err
}
