package config

import (
	"errors"
	"fmt"
)

func (c Config) Validate() error {
	var errs []error

	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	// userId cookie lives as long as the refresh token; it must outlive the access cookie.
	if c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL"))
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	// Catalog and purchases always live in postgres; STORE_DRIVER only picks the user store.
	errs = append(errs, nonEmpty(c.DatabaseURL, "DATABASE_URL"))
	switch c.StoreDriver {
	case StoreDriverPostgres:
	case StoreDriverMongo:
		errs = append(errs, nonEmpty(c.MongoURI, "MONGO_URI"))
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of postgres, mongo", c.StoreDriver))
	}

	if c.StripeSecretKey != "" {
		errs = append(errs, nonEmpty(c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func nonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", envName)
	}
	return nil
}
