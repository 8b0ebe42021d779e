package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	purchaserepo "github.com/Skotchmaster/storefront/internal/purchase/repo"
)

type ProductCounter interface {
	CountProducts(ctx context.Context) (int64, error)
}

type PurchaseStats interface {
	Stats(ctx context.Context) (purchaserepo.Stats, error)
}

type AdminService struct {
	Users     repo.UserStore
	Products  ProductCounter
	Purchases PurchaseStats
}

type Stats struct {
	TotalUsers          int64 `json:"totalUsers"`
	TotalProducts       int64 `json:"totalProducts"`
	TotalPurchases      int64 `json:"totalPurchases"`
	SuccessfulPurchases int64 `json:"successfulPurchases"`
	TotalRevenue        int64 `json:"totalRevenue"`
}

// ListUsers never returns admins.
func (s *AdminService) ListUsers(ctx context.Context, f repo.UserFilter) ([]models.Profile, int64, error) {
	users, total, err := s.Users.ListUsers(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	return out, total, nil
}

func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.Users.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	products, err := s.Products.CountProducts(ctx)
	if err != nil {
		return Stats{}, err
	}
	purchases, err := s.Purchases.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalUsers:          users,
		TotalProducts:       products,
		TotalPurchases:      purchases.Total,
		SuccessfulPurchases: purchases.Successful,
		TotalRevenue:        purchases.Revenue,
	}, nil
}
