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
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	BOM          BOMConfig
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
	Env          string `envconfig:"TRACELINE_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"TRACELINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRACELINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRACELINE_DB_DSN"`
	Driver string `envconfig:"TRACELINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRACELINE_DB_HOST"`
	LegacyPort     int    `envconfig:"TRACELINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRACELINE_DB_USER"`
	LegacyPassword string `envconfig:"TRACELINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRACELINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRACELINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRACELINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRACELINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRACELINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRACELINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRACELINE_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	// BalanceRetryAttempts bounds the compare-and-swap loop on a single
	// inventory balance before the operation gives up with a conflict.
	BalanceRetryAttempts int `envconfig:"TRACELINE_INVENTORY_BALANCE_RETRY_ATTEMPTS" default:"5"`
}

type BOMConfig struct {
	// MaxDepth caps cycle detection and explosion traversals.
	MaxDepth int `envconfig:"TRACELINE_BOM_MAX_DEPTH" default:"32"`
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
