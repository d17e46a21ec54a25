package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "TRADEIN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TRADEIN_APP_ENV"
	EnvPort     = "TRADEIN_APP_PORT"
	EnvLogLevel = "TRADEIN_LOG_LEVEL"

	EnvDBDSN  = "TRADEIN_DB_DSN"
	EnvDBHost = "TRADEIN_DB_HOST"
	EnvDBUser = "TRADEIN_DB_USER"
	EnvDBName = "TRADEIN_DB_NAME"

	EnvRedisURL = "TRADEIN_REDIS_URL"

	EnvJWTSecret  = "TRADEIN_JWT_SECRET"
	EnvJWTIssuer  = "TRADEIN_JWT_ISSUER"
	EnvJWTExpMins = "TRADEIN_JWT_EXPIRATION_MINUTES"

	EnvOrderNumberPrefix = "TRADEIN_ORDER_NUMBER_PREFIX"
	EnvOrderNumberWidth  = "TRADEIN_ORDER_NUMBER_WIDTH"

	EnvShippingAPIKey = "TRADEIN_SHIPPING_API_KEY"
	EnvStripeAPIKey   = "TRADEIN_STRIPE_API_KEY"
	EnvCronInterval   = "TRADEIN_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
