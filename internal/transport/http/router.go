package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	adminhttp "github.com/Skotchmaster/storefront/internal/admin/httpserver"
	authhttp "github.com/Skotchmaster/storefront/internal/auth/httpserver"
	authmw "github.com/Skotchmaster/storefront/internal/auth/middleware"
	cataloghttp "github.com/Skotchmaster/storefront/internal/catalog/httpserver"
	paymenthttp "github.com/Skotchmaster/storefront/internal/payment/httpserver"
	purchasehttp "github.com/Skotchmaster/storefront/internal/purchase/httpserver"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

type Deps struct {
	Logger *slog.Logger
	DB     *gorm.DB
	Gate   *authmw.Gate

	AuthHandler     *authhttp.AuthHTTP
	CatalogHandler  *cataloghttp.CatalogHTTP
	PurchaseHandler *purchasehttp.PurchaseHTTP
	AdminHandler    *adminhttp.AdminHTTP
	// PaymentHandler is nil when no payment provider is configured.
	PaymentHandler *paymenthttp.PaymentHTTP

	CORSOrigins []string
	LoginRate   rate.Limit
	LoginBurst  int
}

// New builds the echo instance with the shared middleware stack and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logging.FromContext(c.Request().Context()).Error("panic_recovered", "error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(d.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := pkgdb.Ping(c.Request().Context(), d.DB); err != nil {
				logging.FromContext(c.Request().Context()).Error("readiness_failed", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")

	d.AuthHandler.Mount(api.Group("/auth"), d.Gate, loginLimiter(d.LoginRate, d.LoginBurst))
	d.CatalogHandler.Mount(api.Group("/products"), d.Gate)
	d.PurchaseHandler.Mount(api.Group("/purchases"), d.Gate)
	d.AdminHandler.Mount(api.Group("/admin"), d.Gate)
	if d.PaymentHandler != nil {
		d.PaymentHandler.Mount(api.Group("/payment"), d.Gate)
	}
}

// loginLimiter throttles credential endpoints per client IP.
func loginLimiter(limit rate.Limit, burst int) echo.MiddlewareFunc {
	if limit <= 0 {
		limit = 1
	}
	if burst <= 0 {
		burst = 10
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      limit,
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Internal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c.Request().Context()).Warn("login_rate_limited", "status", 429, "remote_ip", identifier)
			return apperr.TooManyRequests("Too many attempts, try again later")
		},
	})
}
