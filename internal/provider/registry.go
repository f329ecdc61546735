package provider

import (
	"fmt"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/metrics"
	"github.com/OldStager01/cloud-optimizer/internal/resilience"
	"github.com/OldStager01/cloud-optimizer/pkg/config"
)

const (
	BackendSim  = "sim"
	BackendHTTP = "http"
)

// Build constructs the provider for a profile and wraps it with the
// configured resilience layer. Every code path downstream of a profile
// goes through here, so backend selection never leaks elsewhere.
func Build(profile config.ProfileConfig, settings config.ProviderConfig) (Provider, error) {
	if !profile.Provider.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, profile.Provider)
	}

	var inner Provider
	switch profile.Backend {
	case BackendSim, "":
		inner = NewSimProvider(profile.Provider, profile.Region)
	case BackendHTTP:
		if profile.Endpoint == "" {
			return nil, fmt.Errorf("http backend for provider %s requires an endpoint", profile.Provider)
		}
		inner = NewHTTPProvider(profile.Provider, profile.Endpoint, settings.Timeout)
	default:
		return nil, fmt.Errorf("unsupported provider backend %q", profile.Backend)
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        string(profile.Provider) + "-provider",
		MaxFailures: settings.CircuitBreaker.MaxFailures,
		Timeout:     settings.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.WithProvider(string(profile.Provider)).
				Warnf("Circuit breaker %s transitioned %s -> %s", name, from, to)
			metrics.Get().SetCircuitBreakerState(name, int(to))
		},
	})

	retry := resilience.RetryConfig{
		Attempts: settings.RetryAttempts,
		Backoff:  settings.RetryBackoff,
	}

	return NewResilientProvider(inner, breaker, retry), nil
}
