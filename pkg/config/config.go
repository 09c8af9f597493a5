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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Admin        AdminConfig
	FeatureFlags FeatureFlagsConfig
	MercadoPago  MercadoPagoConfig
	Storage      StorageConfig
	Mail         MailConfig
	Cart         CartConfig
	Webhook      WebhookConfig
	LoginLimit   LoginRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BORDADO_APP_ENV" required:"true"`
	Port         string `envconfig:"BORDADO_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"BORDADO_PUBLIC_URL" required:"true"`
	APIURL       string `envconfig:"BORDADO_API_URL"`
	LogLevel     string `envconfig:"BORDADO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BORDADO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BORDADO_DB_DSN"`
	Driver string `envconfig:"BORDADO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BORDADO_DB_HOST"`
	LegacyPort     int    `envconfig:"BORDADO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BORDADO_DB_USER"`
	LegacyPassword string `envconfig:"BORDADO_DB_PASSWORD"`
	LegacyName     string `envconfig:"BORDADO_DB_NAME"`
	LegacySSLMode  string `envconfig:"BORDADO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BORDADO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BORDADO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BORDADO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BORDADO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BORDADO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BORDADO_REDIS_ADDR"`
	Password     string        `envconfig:"BORDADO_REDIS_PASSWORD"`
	DB           int           `envconfig:"BORDADO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BORDADO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BORDADO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BORDADO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BORDADO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BORDADO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BORDADO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BORDADO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BORDADO_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"BORDADO_SESSION_TTL_MINUTES" default:"720"`
}

// SessionTTL returns the admin session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BORDADO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BORDADO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BORDADO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BORDADO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BORDADO_ARGON_KEY_LEN" default:"32"`
}

// AdminConfig identifies the single dashboard operator account.
type AdminConfig struct {
	Email        string `envconfig:"BORDADO_ADMIN_EMAIL" required:"true"`
	PasswordHash string `envconfig:"BORDADO_ADMIN_PASSWORD_HASH" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BORDADO_AUTO_MIGRATE" default:"false"`
}

type MercadoPagoConfig struct {
	AccessToken         string `envconfig:"BORDADO_MP_ACCESS_TOKEN" required:"true"`
	BaseURL             string `envconfig:"BORDADO_MP_BASE_URL"`
	CurrencyID          string `envconfig:"BORDADO_MP_CURRENCY" default:"ARS"`
	StatementDescriptor string `envconfig:"BORDADO_MP_STATEMENT_DESCRIPTOR" default:"ARCHIVO BORDADO"`
}

type StorageConfig struct {
	URL          string `envconfig:"BORDADO_STORAGE_URL" required:"true"`
	ServiceKey   string `envconfig:"BORDADO_STORAGE_SERVICE_KEY" required:"true"`
	PublicBucket string `envconfig:"BORDADO_STORAGE_PUBLIC_BUCKET" default:"public-assets"`
	MatrixBucket string `envconfig:"BORDADO_STORAGE_MATRIX_BUCKET" default:"matrix-files"`
}

type MailConfig struct {
	APIKey    string `envconfig:"BORDADO_SENDGRID_API_KEY" required:"true"`
	FromEmail string `envconfig:"BORDADO_SENDGRID_FROM_EMAIL" required:"true"`
	FromName  string `envconfig:"BORDADO_SENDGRID_FROM_NAME" default:"Archivo Bordado"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"BORDADO_CART_TTL" default:"720h"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BORDADO_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// LoginRateLimitConfig throttles the admin login endpoint.
type LoginRateLimitConfig struct {
	Window     time.Duration `envconfig:"BORDADO_LOGIN_RATE_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"BORDADO_LOGIN_RATE_IP_LIMIT" default:"10"`
	EmailLimit int           `envconfig:"BORDADO_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
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
