package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	OrderNumbers OrderNumberConfig
	Shipping     ShippingConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
	Wholesale    WholesaleConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.OrderNumbers.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEIN_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEIN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TRADEIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEIN_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list for browser clients.
	CORSOrigins []string `envconfig:"TRADEIN_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADEIN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEIN_DB_DSN"`
	Driver string `envconfig:"TRADEIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEIN_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEIN_DB_USER"`
	LegacyPassword string `envconfig:"TRADEIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// MaxTxAttempts bounds how many times a conflicting transaction is replayed.
	MaxTxAttempts  int           `envconfig:"TRADEIN_DB_MAX_TX_ATTEMPTS" default:"5"`
	TxRetryBackoff time.Duration `envconfig:"TRADEIN_DB_TX_RETRY_BACKOFF" default:"20ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEIN_REDIS_URL"`
	Address      string        `envconfig:"TRADEIN_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEIN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles the public order intake endpoint.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"TRADEIN_RATE_LIMIT_WINDOW" default:"1h"`
	IPLimit    int           `envconfig:"TRADEIN_RATE_LIMIT_IP" default:"30"`
	EmailLimit int           `envconfig:"TRADEIN_RATE_LIMIT_EMAIL" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEIN_AUTO_MIGRATE" default:"false"`
}

type OrderNumberConfig struct {
	Prefix          string `envconfig:"TRADEIN_ORDER_NUMBER_PREFIX" default:"ORD"`
	Width           int    `envconfig:"TRADEIN_ORDER_NUMBER_WIDTH" default:"7"`
	WholesalePrefix string `envconfig:"TRADEIN_WHOLESALE_ORDER_NUMBER_PREFIX" default:"WHL"`
}

func (o OrderNumberConfig) validate() error {
	if strings.TrimSpace(o.Prefix) == "" {
		return fmt.Errorf("%s must not be empty", EnvOrderNumberPrefix)
	}
	if o.Width < 1 || o.Width > 18 {
		return fmt.Errorf("%s must be between 1 and 18", EnvOrderNumberWidth)
	}
	return nil
}

type ShippingConfig struct {
	// APIKey selects the real carrier integration; the mock adapter is used when empty.
	APIKey        string        `envconfig:"TRADEIN_SHIPPING_API_KEY"`
	BaseURL       string        `envconfig:"TRADEIN_SHIPPING_BASE_URL" default:"https://api.shipengine.com"`
	CarrierID     string        `envconfig:"TRADEIN_SHIPPING_CARRIER_ID"`
	ServiceCode   string        `envconfig:"TRADEIN_SHIPPING_SERVICE_CODE" default:"usps_first_class_mail"`
	Timeout       time.Duration `envconfig:"TRADEIN_SHIPPING_TIMEOUT" default:"15s"`
	WebhookSecret string        `envconfig:"TRADEIN_SHIPPING_WEBHOOK_SECRET"`

	WarehouseName    string `envconfig:"TRADEIN_WAREHOUSE_NAME" default:"Receiving"`
	WarehousePhone   string `envconfig:"TRADEIN_WAREHOUSE_PHONE"`
	WarehouseStreet  string `envconfig:"TRADEIN_WAREHOUSE_STREET"`
	WarehouseCity    string `envconfig:"TRADEIN_WAREHOUSE_CITY"`
	WarehouseState   string `envconfig:"TRADEIN_WAREHOUSE_STATE"`
	WarehousePostal  string `envconfig:"TRADEIN_WAREHOUSE_POSTAL_CODE"`
	WarehouseCountry string `envconfig:"TRADEIN_WAREHOUSE_COUNTRY" default:"US"`
}

type StripeConfig struct {
	APIKey string `envconfig:"TRADEIN_STRIPE_API_KEY"`
	Secret string `envconfig:"TRADEIN_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"TRADEIN_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TRADEIN_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TRADEIN_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"TRADEIN_PUBSUB_NOTIFICATION_TOPIC" default:"tradein-notification-events"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"TRADEIN_CRON_INTERVAL" default:"1h"`
	LockTTL      time.Duration `envconfig:"TRADEIN_CRON_LOCK_TTL" default:"55m"`
	BatchSize    int           `envconfig:"TRADEIN_CRON_BATCH_SIZE" default:"200"`
	LabelTTL     time.Duration `envconfig:"TRADEIN_CRON_LABEL_TTL" default:"720h"`
	DormantAfter time.Duration `envconfig:"TRADEIN_CRON_DORMANT_AFTER" default:"1080h"`
}

type WholesaleConfig struct {
	Currency       string        `envconfig:"TRADEIN_WHOLESALE_CURRENCY" default:"usd"`
	ReservationTTL time.Duration `envconfig:"TRADEIN_WHOLESALE_RESERVATION_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
