package config

import (
	"fmt"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

type Config struct {
	App      AppConfig                `mapstructure:"app"`
	Profiles map[string]ProfileConfig `mapstructure:"profiles"`
	Provider ProviderConfig           `mapstructure:"provider"`
	Scaling  ScalingConfig            `mapstructure:"scaling"`
	Cleanup  CleanupConfig            `mapstructure:"cleanup"`
	Cooldown CooldownConfig           `mapstructure:"cooldown"`
	Database DatabaseConfig           `mapstructure:"database"`
	Daemon   DaemonConfig             `mapstructure:"daemon"`
	API      APIConfig                `mapstructure:"api"`
	Events   EventsConfig             `mapstructure:"events"`
	Report   ReportConfig             `mapstructure:"report"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProfileConfig names a provider account the CLI can target. Backend
// selects the capability set implementation: "sim" or "http".
type ProfileConfig struct {
	Provider models.CloudProvider `mapstructure:"provider"`
	Region   string               `mapstructure:"region"`
	Backend  string               `mapstructure:"backend"`
	Endpoint string               `mapstructure:"endpoint"`
}

type ProviderConfig struct {
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryBackoff   time.Duration        `mapstructure:"retry_backoff"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ScalingConfig holds the default policy plus the groups the daemon
// watches. CLI flags override the policy fields per invocation.
type ScalingConfig struct {
	Policy  models.ScalingPolicy `mapstructure:"policy"`
	Targets []string             `mapstructure:"targets"`

	// MaxParallel bounds how many groups are evaluated at once within a
	// single run. Execution is always sequential.
	MaxParallel int `mapstructure:"max_parallel"`
}

type CleanupConfig struct {
	AgeThresholdDays     int                 `mapstructure:"age_threshold_days"`
	UtilizationThreshold float64             `mapstructure:"utilization_threshold_pct"`
	ResourceType         models.ResourceType `mapstructure:"resource_type"`
}

// CooldownConfig selects where recorded scaling actions live between
// invocations: memory, file, or postgres.
type CooldownConfig struct {
	Store string `mapstructure:"store"`
	Path  string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type DaemonConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type APIConfig struct {
	Port         int             `mapstructure:"port"`
	MetricsPort  int             `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `mapstructure:"idle_timeout"`
	JWTSecret    string          `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration   `mapstructure:"jwt_duration"`
	Auth         AuthConfig      `mapstructure:"auth"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
}

// AuthConfig declares the single API user. PasswordHash is a bcrypt
// hash, never a plaintext password.
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type EventsConfig struct {
	BufferSize    int    `mapstructure:"buffer_size"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type ReportConfig struct {
	Currency        string  `mapstructure:"currency"`
	BudgetThreshold float64 `mapstructure:"budget_threshold"`
}

func (a APIConfig) Addr() string {
	return fmt.Sprintf(":%d", a.Port)
}

// Profile resolves a named profile.
func (c *Config) Profile(name string) (ProfileConfig, error) {
	if name == "" {
		name = "default"
	}
	p, ok := c.Profiles[name]
	if !ok {
		return ProfileConfig{}, fmt.Errorf("profile %q not found in configuration", name)
	}
	return p, nil
}

// DatabaseEnabled reports whether a Postgres connection is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != "" && c.Database.Name != ""
}
