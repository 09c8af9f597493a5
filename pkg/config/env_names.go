package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "BORDADO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "BORDADO_APP_ENV"
	EnvPort      = "BORDADO_APP_PORT"
	EnvPublicURL = "BORDADO_PUBLIC_URL"

	EnvDBDSN  = "BORDADO_DB_DSN"
	EnvDBHost = "BORDADO_DB_HOST"
	EnvDBUser = "BORDADO_DB_USER"
	EnvDBName = "BORDADO_DB_NAME"

	EnvRedisURL = "BORDADO_REDIS_URL"

	EnvJWTSecret  = "BORDADO_JWT_SECRET"
	EnvJWTIssuer  = "BORDADO_JWT_ISSUER"
	EnvJWTExpMins = "BORDADO_JWT_EXPIRATION_MINUTES"

	EnvAdminEmail        = "BORDADO_ADMIN_EMAIL"
	EnvAdminPasswordHash = "BORDADO_ADMIN_PASSWORD_HASH"

	EnvMPAccessToken = "BORDADO_MP_ACCESS_TOKEN"

	EnvStorageURL        = "BORDADO_STORAGE_URL"
	EnvStorageServiceKey = "BORDADO_STORAGE_SERVICE_KEY"

	EnvSendgridAPIKey = "BORDADO_SENDGRID_API_KEY"
	EnvSendgridFrom   = "BORDADO_SENDGRID_FROM_EMAIL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
