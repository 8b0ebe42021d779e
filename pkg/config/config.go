package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"storefront"`
	RedisURL      string `env:"REDIS_URL"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" envDefault:"2m"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	LoginRateBurst     int     `env:"LOGIN_RATE_BURST" envDefault:"10"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string `env:"PAYMENT_CURRENCY" envDefault:"usd"`
}

func (c Config) IsProduction() bool { return c.Environment == "production" }

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.ServerPort) }

// Load reads .env files when present, then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		log.Printf("notice: .env not loaded: %v, using process environment", err)
	}
	return parse(env.Options{})
}

// FromMap parses cfg from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
