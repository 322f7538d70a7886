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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Webhooks     WebhooksConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"OPSLOG_APP_ENV" required:"true"`
	Port         string `envconfig:"OPSLOG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPSLOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPSLOG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OPSLOG_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OPSLOG_DB_DSN"`
	Driver string `envconfig:"OPSLOG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"OPSLOG_DB_HOST"`
	Port     int    `envconfig:"OPSLOG_DB_PORT" default:"5432"`
	User     string `envconfig:"OPSLOG_DB_USER"`
	Password string `envconfig:"OPSLOG_DB_PASSWORD"`
	Name     string `envconfig:"OPSLOG_DB_NAME"`
	SSLMode  string `envconfig:"OPSLOG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPSLOG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPSLOG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPSLOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPSLOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPSLOG_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPSLOG_REDIS_ADDR"`
	Password     string        `envconfig:"OPSLOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPSLOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPSLOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPSLOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPSLOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPSLOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPSLOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OPSLOG_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"OPSLOG_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"OPSLOG_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	IncidentSubscription string `envconfig:"OPSLOG_PUBSUB_INCIDENT_SUBSCRIPTION" required:"true"`
}

// WebhooksConfig tunes the outbound webhook dispatcher.
type WebhooksConfig struct {
	WorkerCount      int           `envconfig:"OPSLOG_WEBHOOK_WORKER_COUNT" default:"8"`
	QueueSize        int           `envconfig:"OPSLOG_WEBHOOK_QUEUE_SIZE" default:"256"`
	DeliveryTimeout  time.Duration `envconfig:"OPSLOG_WEBHOOK_DELIVERY_TIMEOUT" default:"10s"`
	FailureThreshold int           `envconfig:"OPSLOG_WEBHOOK_FAILURE_THRESHOLD" default:"5"`
	RetentionDays    int           `envconfig:"OPSLOG_WEBHOOK_RETENTION_DAYS" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OPSLOG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
