package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/gameclient"
	"github.com/nightgate/nightgate/pkg/policy"
	"github.com/nightgate/nightgate/pkg/quota"
	"github.com/nightgate/nightgate/pkg/simulator"
)

type Config struct {
	Game      gameclient.Config
	Policy    PolicyConfig
	Report    admission.ReportOptions
	Simulator simulator.Config
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

type PolicyConfig struct {
	Name         string `mapstructure:"name"`
	quota.Params `mapstructure:",squash"`
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/nightgate/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NIGHTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when no config file is present.
func setDefaults(v *viper.Viper) {
	params := quota.DefaultParams()
	report := admission.DefaultReportOptions()

	v.SetDefault("game.base_url", "https://berghain.challenges.listenlabs.ai")
	v.SetDefault("game.player_id", "")
	v.SetDefault("game.scenario", 1)
	v.SetDefault("game.user_agent", "nightgate/1.0")
	v.SetDefault("game.request_timeout", "30s")
	v.SetDefault("game.throttle", "10ms")
	v.SetDefault("game.max_attempts", 6)
	v.SetDefault("game.backoff_base", "200ms")
	v.SetDefault("game.backoff_max", "1500ms")

	v.SetDefault("policy.name", policy.NameTrajectory)
	v.SetDefault("policy.tolerance", params.Tolerance)
	v.SetDefault("policy.overfill_factor", params.OverfillFactor)
	v.SetDefault("policy.rescue_ratio", params.RescueRatio)
	v.SetDefault("policy.rare_frequency", params.RareFrequency)
	v.SetDefault("policy.rare_demand_ratio", params.RareDemandRatio)

	v.SetDefault("report.every", report.Every)
	v.SetDefault("report.early_every", report.EarlyEvery)
	v.SetDefault("report.early_until", report.EarlyUntil)

	v.SetDefault("simulator.seed", 1)
	v.SetDefault("simulator.max_rejections", simulator.DefaultMaxRejections)

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "nightgate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "nightgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.cluster_mode", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) Validate() error {
	if _, err := policy.New(c.Policy.Name, c.Policy.Params); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Report.Every < 0 || c.Report.EarlyEvery < 0 || c.Report.EarlyUntil < 0 {
		return errors.New("report intervals must be non-negative")
	}
	if c.Game.MaxAttempts <= 0 {
		return errors.New("game.max_attempts must be positive")
	}
	if c.Game.Throttle < 0 || c.Game.BackoffBase < 0 || c.Game.BackoffMax < 0 {
		return errors.New("game intervals must be non-negative")
	}
	if c.Simulator.MaxRejections <= 0 {
		return errors.New("simulator.max_rejections must be positive")
	}
	if c.Redis.Enabled && len(c.Redis.Addresses) == 0 {
		return errors.New("redis.addresses is required when redis is enabled")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
