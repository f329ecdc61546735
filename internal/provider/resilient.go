package provider

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/resilience"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// ResilientProvider decorates a Provider with a circuit breaker and
// bounded retries. Reads are retried on transient failures; scaling and
// delete calls get a single attempt so a flaky backend never receives
// the same mutation twice.
type ResilientProvider struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

func NewResilientProvider(inner Provider, breaker *resilience.CircuitBreaker, retry resilience.RetryConfig) *ResilientProvider {
	retry.RetryIf = transient
	return &ResilientProvider{
		inner:   inner,
		breaker: breaker,
		retry:   retry,
	}
}

// transient reports whether an error is worth another attempt. Missing
// groups and absent metrics are stable facts, not glitches.
func transient(err error) bool {
	return errors.Is(err, ErrRetrievalFailed) || errors.Is(err, ErrTimeout)
}

func (p *ResilientProvider) Name() models.CloudProvider {
	return p.inner.Name()
}

func (p *ResilientProvider) FetchInventory(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error) {
	var out []models.Resource
	err := p.read(ctx, func() error {
		var innerErr error
		out, innerErr = p.inner.FetchInventory(ctx, resourceType)
		return innerErr
	})
	return out, err
}

func (p *ResilientProvider) FetchGroups(ctx context.Context) ([]models.ScalingGroup, error) {
	var out []models.ScalingGroup
	err := p.read(ctx, func() error {
		var innerErr error
		out, innerErr = p.inner.FetchGroups(ctx)
		return innerErr
	})
	return out, err
}

func (p *ResilientProvider) FetchMetrics(ctx context.Context, groupID string) (*models.UtilizationSample, error) {
	var out *models.UtilizationSample
	err := p.read(ctx, func() error {
		var innerErr error
		out, innerErr = p.inner.FetchMetrics(ctx, groupID)
		return innerErr
	})
	return out, err
}

func (p *ResilientProvider) FetchServiceCosts(ctx context.Context, start, end time.Time) ([]models.ServiceCost, error) {
	var out []models.ServiceCost
	err := p.read(ctx, func() error {
		var innerErr error
		out, innerErr = p.inner.FetchServiceCosts(ctx, start, end)
		return innerErr
	})
	return out, err
}

func (p *ResilientProvider) ApplyScaling(ctx context.Context, action *models.ScalingAction) error {
	return p.breaker.Execute(func() error {
		return p.inner.ApplyScaling(ctx, action)
	})
}

func (p *ResilientProvider) DeleteResource(ctx context.Context, resourceID string) error {
	return p.breaker.Execute(func() error {
		return p.inner.DeleteResource(ctx, resourceID)
	})
}

// HealthCheck bypasses the breaker so operators can probe a backend the
// breaker has already isolated.
func (p *ResilientProvider) HealthCheck(ctx context.Context) error {
	return p.inner.HealthCheck(ctx)
}

func (p *ResilientProvider) Close() error {
	return p.inner.Close()
}

func (p *ResilientProvider) read(ctx context.Context, op func() error) error {
	err := p.breaker.Execute(func() error {
		return resilience.Retry(ctx, p.retry, op)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		logger.WithProvider(string(p.inner.Name())).Warn("Circuit breaker open, request short-circuited")
	}
	return err
}
