package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/purchase/models"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrDuplicateIntent  = errors.New("payment intent already recorded")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		if pkgdb.IsUniqueViolation(err) {
			return ErrDuplicateIntent
		}
		return err
	}
	return nil
}

func (r *GormRepo) ListByUser(ctx context.Context, userID string, offset, limit int) (int64, []models.Purchase, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Purchase{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Purchase, 0, limit)
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// GetForUser only finds purchases owned by userID.
func (r *GormRepo) GetForUser(ctx context.Context, id, userID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) UpdatePaymentStatus(ctx context.Context, intentID, status string) (*models.Purchase, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("payment_intent_id = ?", intentID).
		Update("payment_status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPurchaseNotFound
	}

	var p models.Purchase
	if err := r.DB.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

type Stats struct {
	Total      int64
	Successful int64
	Revenue    int64
}

func (r *GormRepo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := r.DB.WithContext(ctx)
	if err := db.Model(&models.Purchase{}).Count(&s.Total).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&models.Purchase{}).Where("payment_status = ?", models.PaymentSucceeded).Count(&s.Successful).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&models.Purchase{}).
		Where("payment_status = ?", models.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&s.Revenue).Error; err != nil {
		return Stats{}, err
	}
	return s, nil
}
