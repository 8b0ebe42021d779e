package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/catalog/models"
	"github.com/Skotchmaster/storefront/internal/catalog/repo"
	"github.com/Skotchmaster/storefront/internal/catalog/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrProductNotFound) {
		return nil, ErrNotFound
	}
	return prod, err
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	prod := &models.Product{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		ImageURL:      strings.TrimSpace(req.ImageURL),
		StockQuantity: req.StockQuantity,
		Status:        req.Status,
	}
	if prod.Status == "" {
		prod.Status = models.StatusActive
	}
	if prod.ImageURL == "" {
		return nil, fmt.Errorf("%w: image URL is required", ErrValidation)
	}
	if err := validate(prod); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicProducts, prod.ID, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, id string, req transport.PatchProductRequest) (*models.Product, error) {
	if err := validatePatch(&req); err != nil {
		return nil, err
	}

	prod, err := s.Repo.PatchProduct(ctx, id, req)
	if err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicProducts, prod.ID, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			return ErrNotFound
		}
		return err
	}

	events.Emit(ctx, s.Events, events.TopicProducts, id, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func validate(p *models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case p.Price < 0:
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrValidation)
	case p.Status != models.StatusActive && p.Status != models.StatusInactive:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, p.Status)
	}
	return nil
}

func validatePatch(req *transport.PatchProductRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		req.Name = &name
	}
	if req.ImageURL != nil && strings.TrimSpace(*req.ImageURL) == "" {
		return fmt.Errorf("%w: image URL cannot be empty", ErrValidation)
	}
	if req.Price != nil && *req.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrValidation)
	}
	if req.Status != nil && *req.Status != models.StatusActive && *req.Status != models.StatusInactive {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
	}
	return nil
}
