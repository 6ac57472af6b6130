package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the platform.
const EnvPrefix = "DISHPATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	Cart         CartConfig
	Hub          HubConfig
	Cron         CronConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISHPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISHPATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISHPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISHPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISHPATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISHPATCH_DB_DSN"`
	Driver string `envconfig:"DISHPATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISHPATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISHPATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISHPATCH_DB_USER"`
	LegacyPassword string `envconfig:"DISHPATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISHPATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISHPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISHPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISHPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DISHPATCH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DISHPATCH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DISHPATCH_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DISHPATCH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISHPATCH_GCP_PROJECT_ID" required:"true"`
	ApplicationCredentials string `envconfig:"DISHPATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"DISHPATCH_PUBSUB_DOMAIN_TOPIC" default:"dp-domain-events"`
	DomainSubscription string `envconfig:"DISHPATCH_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"DISHPATCH_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DISHPATCH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CartConfig struct {
	SnapshotTTL time.Duration `envconfig:"DISHPATCH_CART_SNAPSHOT_TTL" default:"168h"`
}

type HubConfig struct {
	SubscriberBuffer int `envconfig:"DISHPATCH_HUB_SUBSCRIBER_BUFFER" default:"32"`
}

type RateLimitConfig struct {
	MutationWindow time.Duration `envconfig:"DISHPATCH_RATE_LIMIT_MUTATION_WINDOW" default:"1m"`
	MutationLimit  int64         `envconfig:"DISHPATCH_RATE_LIMIT_MUTATION_LIMIT" default:"120"`
}

type CronConfig struct {
	TickInterval        time.Duration `envconfig:"DISHPATCH_CRON_TICK_INTERVAL" default:"1m"`
	PendingNudgeAfter   time.Duration `envconfig:"DISHPATCH_CRON_PENDING_NUDGE_AFTER" default:"10m"`
	DeliveryArchiveAge  time.Duration `envconfig:"DISHPATCH_CRON_DELIVERY_ARCHIVE_AGE" default:"24h"`
	DeliveryArchiveSize int           `envconfig:"DISHPATCH_CRON_DELIVERY_ARCHIVE_BATCH" default:"200"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"DISHPATCH_DB_HOST": db.LegacyHost,
		"DISHPATCH_DB_USER": db.LegacyUser,
		"DISHPATCH_DB_NAME": db.LegacyName,
	}
	for _, env := range []string{"DISHPATCH_DB_HOST", "DISHPATCH_DB_USER", "DISHPATCH_DB_NAME"} {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either DISHPATCH_DB_DSN or %s are required", strings.Join(missing, ", "))
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
