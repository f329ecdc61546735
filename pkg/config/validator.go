package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/cloud-optimizer/pkg/validation"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, errors.New("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, errors.New("app.log_level must be one of: debug, info, warn, error"))
	}

	// Profile validation
	for name, profile := range c.Profiles {
		if err := validation.ValidateProfileName(name); err != nil {
			errs = append(errs, fmt.Errorf("profiles.%s: %w", name, err))
			continue
		}
		if !profile.Provider.Valid() {
			errs = append(errs, fmt.Errorf("profiles.%s.provider must be one of: aws, gcp, azure", name))
		}
		switch profile.Backend {
		case "", "sim":
		case "http":
			if profile.Endpoint == "" {
				errs = append(errs, fmt.Errorf("profiles.%s.endpoint is required for the http backend", name))
			}
		default:
			errs = append(errs, fmt.Errorf("profiles.%s.backend must be one of: sim, http", name))
		}
	}

	// Provider collaborator validation
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if c.Provider.RetryAttempts < 0 {
		errs = append(errs, errors.New("provider.retry_attempts must not be negative"))
	}
	if c.Provider.CircuitBreaker.MaxFailures <= 0 {
		errs = append(errs, errors.New("provider.circuit_breaker.max_failures must be positive"))
	}

	// Scaling validation: an invalid policy is fatal before any run
	if err := c.Scaling.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, target := range c.Scaling.Targets {
		if err := validation.ValidateTargetID(target); err != nil {
			errs = append(errs, fmt.Errorf("scaling.targets %q: %w", target, err))
		}
	}
	if c.Scaling.MaxParallel <= 0 {
		errs = append(errs, errors.New("scaling.max_parallel must be positive"))
	}

	// Cleanup validation
	if c.Cleanup.AgeThresholdDays < 0 {
		errs = append(errs, errors.New("cleanup.age_threshold_days must not be negative"))
	}
	if c.Cleanup.UtilizationThreshold < 0 || c.Cleanup.UtilizationThreshold > 100 {
		errs = append(errs, errors.New("cleanup.utilization_threshold_pct must be between 0 and 100"))
	}
	if !c.Cleanup.ResourceType.Valid() {
		errs = append(errs, errors.New("cleanup.resource_type must be one of: instance, volume, snapshot, loadbalancer, all"))
	}

	// Cooldown store validation
	switch c.Cooldown.Store {
	case "memory", "postgres":
	case "file":
		if c.Cooldown.Path == "" {
			errs = append(errs, errors.New("cooldown.path is required for the file store"))
		}
	default:
		errs = append(errs, errors.New("cooldown.store must be one of: memory, file, postgres"))
	}
	if c.Cooldown.Store == "postgres" && !c.DatabaseEnabled() {
		errs = append(errs, errors.New("cooldown.store postgres requires database.host and database.name"))
	}

	// Database validation (only when enabled)
	if c.DatabaseEnabled() {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Daemon validation
	if c.Daemon.Interval <= 0 {
		errs = append(errs, errors.New("daemon.interval must be positive"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}
	if c.API.Auth.Username != "" {
		if err := validation.ValidateUsername(c.API.Auth.Username); err != nil {
			errs = append(errs, fmt.Errorf("api.auth.username: %w", err))
		}
		if c.API.Auth.PasswordHash == "" {
			errs = append(errs, errors.New("api.auth.password_hash is required when api.auth.username is set"))
		}
	}
	if c.API.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("api.rate_limit.requests must be positive"))
	}
	if c.API.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("api.rate_limit.window must be positive"))
	}

	// Events validation
	if c.Events.BufferSize <= 0 {
		errs = append(errs, errors.New("events.buffer_size must be positive"))
	}

	// Report validation
	if c.Report.BudgetThreshold < 0 {
		errs = append(errs, errors.New("report.budget_threshold must not be negative"))
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("config validation failed: %s", joinErrors(msgs))
	}
	return nil
}

func joinErrors(msgs []string) string {
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}
