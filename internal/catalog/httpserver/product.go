package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/middleware"
	"github.com/Skotchmaster/storefront/internal/catalog/service"
	"github.com/Skotchmaster/storefront/internal/catalog/transport"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/pagination"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) Mount(g *echo.Group, gate *middleware.Gate) {
	g.GET("", h.GetProducts)
	g.GET("/:id", h.GetProduct)

	admin := g.Group("", gate.RequireAuth, gate.RequireAdmin())
	admin.POST("", h.CreateProduct)
	admin.PUT("/:id", h.PatchProduct)
	admin.DELETE("/:id", h.DeleteProduct)
}

func productID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := productID(c)
	if err != nil {
		l.Warn("get_product_failed", "status", 400, "reason", "id is not a uuid", "error", err)
		return apperr.Validation("Invalid product id")
	}

	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "product_id", id)
			return apperr.NotFound("Product not found")
		}
		l.Error("get_product_failed", "status", 500, "reason", "cannot get product", "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page, offset, limit := pagination.Calculate(
		pagination.ParseIntDefault(c.QueryParam("page"), 1),
		pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultPageSize),
		pagination.DefaultPageSize,
	)

	total, items, err := h.Svc.GetProducts(ctx, offset, limit)
	if err != nil {
		l.Error("get_products_error", "status", 500, "reason", "cannot list products", "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": pagination.NewMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}

	prod, err := h.Svc.CreateProduct(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("product_create_error", "status", 400, "error", err)
			return apperr.Validation(detail(err))
		}
		l.Error("product_create_error", "status", 500, "reason", "cannot add product to db", "error", err)
		return apperr.Internal(err)
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := productID(c)
	if err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return apperr.Validation("Invalid product id")
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}

	prod, err := h.Svc.PatchProduct(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("product_patch_error", "status", 400, "error", err)
			return apperr.Validation(detail(err))
		case errors.Is(err, service.ErrNotFound):
			l.Warn("product_patch_error", "status", 404, "product_id", id)
			return apperr.NotFound("Product not found")
		default:
			l.Error("product_patch_error", "status", 500, "reason", "cannot update product", "error", err)
			return apperr.Internal(err)
		}
	}

	l.Info("patch_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := productID(c)
	if err != nil {
		l.Warn("product_delete_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return apperr.Validation("Invalid product id")
	}

	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_delete_error", "status", 404, "product_id", id)
			return apperr.NotFound("Product not found")
		}
		l.Error("product_delete_error", "status", 500, "reason", "cannot delete product", "error", err)
		return apperr.Internal(err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

func detail(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), service.ErrValidation.Error()+": "); ok {
		return msg
	}
	return "Invalid request"
}
