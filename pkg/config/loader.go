package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cloud-optimizer")
	}

	v.SetEnvPrefix("CLOUDOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars still apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]ProfileConfig)
	}
	if _, ok := cfg.Profiles["default"]; !ok {
		cfg.Profiles["default"] = ProfileConfig{
			Provider: "aws",
			Region:   "us-east-1",
			Backend:  "sim",
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "cloud-optimizer")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Provider defaults
	v.SetDefault("provider.timeout", "5s")
	v.SetDefault("provider.retry_attempts", 3)
	v.SetDefault("provider.retry_backoff", "500ms")
	v.SetDefault("provider.circuit_breaker.max_failures", 5)
	v.SetDefault("provider.circuit_breaker.timeout", "30s")

	// Scaling policy defaults
	v.SetDefault("scaling.policy.min_instances", 1)
	v.SetDefault("scaling.policy.max_instances", 10)
	v.SetDefault("scaling.policy.cpu_threshold_pct", 70.0)
	v.SetDefault("scaling.policy.memory_threshold_pct", 80.0)
	v.SetDefault("scaling.policy.scale_up_cooldown", "5m")
	v.SetDefault("scaling.policy.scale_down_cooldown", "10m")
	v.SetDefault("scaling.max_parallel", 4)

	// Cleanup defaults
	v.SetDefault("cleanup.age_threshold_days", 30)
	v.SetDefault("cleanup.utilization_threshold_pct", 10.0)
	v.SetDefault("cleanup.resource_type", "all")

	// Cooldown store defaults
	v.SetDefault("cooldown.store", "file")
	v.SetDefault("cooldown.path", ".cloud-optimizer/cooldown.json")

	// Database defaults (disabled unless host+name set)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "optimizer")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.ping_timeout", "5s")

	// Daemon defaults
	v.SetDefault("daemon.interval", "60s")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.rate_limit.requests", 10)
	v.SetDefault("api.rate_limit.window", "1m")
	v.SetDefault("api.max_body_bytes", 1<<20)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.subject_prefix", "fleet.events")

	// Report defaults
	v.SetDefault("report.currency", "USD")
	v.SetDefault("report.budget_threshold", 0.0)
}
