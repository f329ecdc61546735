package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// SimProvider serves a deterministic in-memory fleet. It backs the sim
// profiles and every test that needs a provider without a network.
// Scaling applies mutate group sizes; deletes remove resources, so a
// command sequence behaves like a real account would.
type SimProvider struct {
	name   models.CloudProvider
	region string

	mu          sync.RWMutex
	resources   []models.Resource
	groups      map[string]*models.ScalingGroup
	groupOrder  []string
	metrics     map[string]models.MetricsSnapshot
	unavailable map[string]bool
	failFetch   error
	failDeletes map[string]error
	nowFn       func() time.Time
}

func NewSimProvider(name models.CloudProvider, region string) *SimProvider {
	p := &SimProvider{
		name:        name,
		region:      region,
		groups:      make(map[string]*models.ScalingGroup),
		metrics:     make(map[string]models.MetricsSnapshot),
		unavailable: make(map[string]bool),
		failDeletes: make(map[string]error),
		nowFn:       time.Now,
	}
	p.seed()
	return p
}

func (p *SimProvider) Name() models.CloudProvider {
	return p.name
}

func (p *SimProvider) FetchInventory(_ context.Context, resourceType models.ResourceType) ([]models.Resource, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.failFetch != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, p.failFetch)
	}

	out := make([]models.Resource, 0, len(p.resources))
	for _, r := range p.resources {
		if resourceType == models.ResourceTypeAll || r.Type == resourceType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (p *SimProvider) FetchGroups(_ context.Context) ([]models.ScalingGroup, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.failFetch != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, p.failFetch)
	}

	out := make([]models.ScalingGroup, 0, len(p.groupOrder))
	for _, id := range p.groupOrder {
		out = append(out, *p.groups[id])
	}
	return out, nil
}

func (p *SimProvider) FetchMetrics(_ context.Context, groupID string) (*models.UtilizationSample, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.groups[groupID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if p.unavailable[groupID] {
		return nil, fmt.Errorf("%w: no datapoints for group %s", models.ErrMetricsUnavailable, groupID)
	}

	snap := p.metrics[groupID]
	return &models.UtilizationSample{
		CPUPercent:    models.Float(snap.CPUPercent),
		MemoryPercent: models.Float(snap.MemoryPercent),
		SampledAt:     p.nowFn(),
	}, nil
}

func (p *SimProvider) FetchServiceCosts(_ context.Context, start, end time.Time) ([]models.ServiceCost, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.failFetch != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, p.failFetch)
	}

	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		days = 1
	}
	ratio := decimal.NewFromFloat(days).Div(decimal.NewFromInt(30))

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, r := range p.resources {
		service := ServiceLabel(p.name, r.Type)
		if _, seen := totals[service]; !seen {
			order = append(order, service)
		}
		monthly := decimal.NewFromFloat(r.MonthlyCost)
		totals[service] = totals[service].Add(monthly.Mul(ratio))
	}

	costs := make([]models.ServiceCost, 0, len(order))
	for _, service := range order {
		costs = append(costs, models.ServiceCost{
			Service: service,
			Amount:  totals[service].Round(2),
		})
	}
	return costs, nil
}

func (p *SimProvider) ApplyScaling(_ context.Context, action *models.ScalingAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	group, ok := p.groups[action.GroupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, action.GroupID)
	}
	group.Instances = action.TargetInstances
	return nil
}

func (p *SimProvider) DeleteResource(_ context.Context, resourceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.failDeletes[resourceID]; ok {
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	for i, r := range p.resources {
		if r.ID == resourceID {
			p.resources = append(p.resources[:i], p.resources[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: resource %s not found", ErrApplyFailed, resourceID)
}

func (p *SimProvider) HealthCheck(_ context.Context) error {
	return nil
}

func (p *SimProvider) Close() error {
	return nil
}

// Test and fixture hooks. Production callers never touch these.

func (p *SimProvider) SetFailFetch(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFetch = err
}

func (p *SimProvider) SetMetricsUnavailable(groupID string, unavailable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable[groupID] = unavailable
}

func (p *SimProvider) SetFailDelete(resourceID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failDeletes[resourceID] = err
}

func (p *SimProvider) SetGroupMetrics(groupID string, cpu, mem float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics[groupID] = models.MetricsSnapshot{CPUPercent: cpu, MemoryPercent: mem}
}

func (p *SimProvider) AddGroup(group models.ScalingGroup, cpu, mem float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := group
	if _, exists := p.groups[g.ID]; !exists {
		p.groupOrder = append(p.groupOrder, g.ID)
	}
	p.groups[g.ID] = &g
	p.metrics[g.ID] = models.MetricsSnapshot{CPUPercent: cpu, MemoryPercent: mem}
}

func (p *SimProvider) AddResource(r models.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources = append(p.resources, r)
}

func (p *SimProvider) ClearFleet() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources = nil
	p.groups = make(map[string]*models.ScalingGroup)
	p.groupOrder = nil
	p.metrics = make(map[string]models.MetricsSnapshot)
}

func (p *SimProvider) GroupSize(groupID string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.groups[groupID]
	if !ok {
		return 0, false
	}
	return g.Instances, true
}
