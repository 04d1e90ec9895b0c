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
	Reservations ReservationConfig
	Sweeper      SweeperConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"TERRALOTE_APP_ENV" required:"true"`
	Port         string `envconfig:"TERRALOTE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TERRALOTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TERRALOTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TERRALOTE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TERRALOTE_DB_DSN"`
	Driver string `envconfig:"TERRALOTE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TERRALOTE_DB_HOST"`
	LegacyPort     int    `envconfig:"TERRALOTE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TERRALOTE_DB_USER"`
	LegacyPassword string `envconfig:"TERRALOTE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TERRALOTE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TERRALOTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TERRALOTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TERRALOTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TERRALOTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TERRALOTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TERRALOTE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TERRALOTE_REDIS_ADDR"`
	Password     string        `envconfig:"TERRALOTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TERRALOTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TERRALOTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TERRALOTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TERRALOTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TERRALOTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TERRALOTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ReservationConfig struct {
	DefaultDurationDays int `envconfig:"TERRALOTE_RESERVATION_DEFAULT_DURATION_DAYS" default:"3"`
	MaxDurationDays     int `envconfig:"TERRALOTE_RESERVATION_MAX_DURATION_DAYS" default:"30"`
}

type SweeperConfig struct {
	Interval time.Duration `envconfig:"TERRALOTE_SWEEP_INTERVAL" default:"2m"`
	LockTTL  time.Duration `envconfig:"TERRALOTE_SWEEP_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TERRALOTE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TERRALOTE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TERRALOTE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TERRALOTE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TERRALOTE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"TERRALOTE_PUBSUB_NOTIFICATION_TOPIC" default:"tl-notification-events"`
	NotificationSubscription string `envconfig:"TERRALOTE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TERRALOTE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TERRALOTE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TERRALOTE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
