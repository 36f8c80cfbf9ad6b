package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Idempotency   IdempotencyConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Metrics       MetricsConfig
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
	Env          string   `envconfig:"TRADEDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"TRADEDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TRADEDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TRADEDESK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TRADEDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEDESK_DB_DSN"`
	Driver string `envconfig:"TRADEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEDESK_DB_USER"`
	LegacyPassword string `envconfig:"TRADEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEDESK_REDIS_URL"`
	Address      string        `envconfig:"TRADEDESK_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"TRADEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"TRADEDESK_REDIS_KEY_PREFIX" default:"td"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TRADEDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TRADEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TRADEDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TRADEDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRADEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRADEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRADEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRADEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRADEDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type IdempotencyConfig struct {
	TTL         time.Duration `envconfig:"TRADEDESK_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"TRADEDESK_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TRADEDESK_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"TRADEDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic     string            `envconfig:"TRADEDESK_PUBSUB_DOMAIN_TOPIC" default:"tradedesk-domain-events"`
	// AggregateTopics overrides DomainTopic per aggregate, e.g. "sale:sales-events".
	AggregateTopics map[string]string `envconfig:"TRADEDESK_PUBSUB_AGGREGATE_TOPICS"`
}

type OutboxConfig struct {
	BatchSize        int     `envconfig:"TRADEDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int     `envconfig:"TRADEDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int     `envconfig:"TRADEDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishPerSecond float64 `envconfig:"TRADEDESK_OUTBOX_PUBLISH_PER_SECOND" default:"20"`
}

// PollInterval returns the delay between publisher polls.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"TRADEDESK_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"TRADEDESK_METRICS_PATH" default:"/metrics"`
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
