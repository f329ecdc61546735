package fleetsim

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// defaultVariance is the jitter applied to seeded groups, kept small so
// reported values stay close to their calibration points.
const defaultVariance = 1.5

// Fleet owns the mutable state the simulator serves: an inventory of
// resources and the scaling groups with their load models. The initial
// state comes from the built-in fixtures for the chosen provider, after
// which every mutation (scaling, deletion, injected load) is local.
type Fleet struct {
	provider models.CloudProvider
	region   string

	mu         sync.RWMutex
	resources  []models.Resource
	groups     map[string]*GroupSim
	groupOrder []string
}

func NewFleet(name models.CloudProvider, region string) *Fleet {
	f := &Fleet{
		provider: name,
		region:   region,
		groups:   make(map[string]*GroupSim),
	}
	f.seed()
	return f
}

func (f *Fleet) seed() {
	ctx := context.Background()
	src := provider.NewSimProvider(f.provider, f.region)
	defer src.Close()

	if resources, err := src.FetchInventory(ctx, models.ResourceTypeAll); err == nil {
		f.resources = resources
	}

	groups, err := src.FetchGroups(ctx)
	if err != nil {
		return
	}
	for _, grp := range groups {
		cfg := GroupConfig{
			Name:      grp.Name,
			Provider:  grp.Provider,
			Region:    grp.Region,
			Instances: grp.Instances,
			Variance:  defaultVariance,
			Tags:      grp.Tags,
		}
		if sample, err := src.FetchMetrics(ctx, grp.ID); err == nil && sample.Complete() {
			cfg.BaseCPU = *sample.CPUPercent
			cfg.BaseMemory = *sample.MemoryPercent
		}
		f.groups[grp.ID] = NewGroupSim(grp.ID, cfg)
		f.groupOrder = append(f.groupOrder, grp.ID)
	}
}

func (f *Fleet) Provider() models.CloudProvider {
	return f.provider
}

func (f *Fleet) Region() string {
	return f.region
}

// Resources returns the inventory filtered by type. ResourceTypeAll
// returns everything.
func (f *Fleet) Resources(resourceType models.ResourceType) []models.Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Resource, 0, len(f.resources))
	for _, r := range f.resources {
		if resourceType == models.ResourceTypeAll || r.Type == resourceType {
			out = append(out, r)
		}
	}
	return out
}

// AddResource inserts a resource into the inventory, filling in an ID
// and fleet defaults where the caller left them blank.
func (f *Fleet) AddResource(r models.Resource) models.Resource {
	if r.ID == "" {
		r.ID = models.NewUUID()
	}
	if r.Type == "" {
		r.Type = models.ResourceTypeInstance
	}
	if r.Provider == "" {
		r.Provider = f.provider
	}
	if r.Region == "" {
		r.Region = f.region
	}
	if r.State == "" {
		r.State = models.StateRunning
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources = append(f.resources, r)
	return r
}

// DeleteResource removes a resource by ID. It reports false when the
// ID is not in the inventory.
func (f *Fleet) DeleteResource(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.resources {
		if r.ID == id {
			f.resources = append(f.resources[:i], f.resources[i+1:]...)
			return true
		}
	}
	return false
}

// Groups returns snapshots of every scaling group in seed order.
func (f *Fleet) Groups() []models.ScalingGroup {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.ScalingGroup, 0, len(f.groupOrder))
	for _, id := range f.groupOrder {
		out = append(out, f.groups[id].Snapshot())
	}
	return out
}

func (f *Fleet) Group(id string) (*GroupSim, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	g, ok := f.groups[id]
	return g, ok
}

// ServiceCosts prorates each resource's monthly cost over the window
// and totals by billing service. Deleted resources stop accruing.
func (f *Fleet) ServiceCosts(start, end time.Time) []models.ServiceCost {
	f.mu.RLock()
	defer f.mu.RUnlock()

	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		days = 1
	}
	ratio := decimal.NewFromFloat(days).Div(decimal.NewFromInt(30))

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, r := range f.resources {
		service := provider.ServiceLabel(f.provider, r.Type)
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
	return costs
}

// Counts reports inventory and group sizes for the health payload.
func (f *Fleet) Counts() (resources, groups int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.resources), len(f.groups)
}
