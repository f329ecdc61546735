package models

import "time"

type CloudProvider string

const (
	ProviderAWS   CloudProvider = "aws"
	ProviderGCP   CloudProvider = "gcp"
	ProviderAzure CloudProvider = "azure"
)

// KnownProviders lists every provider a registry may be asked to build.
var KnownProviders = []CloudProvider{ProviderAWS, ProviderGCP, ProviderAzure}

func (p CloudProvider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderGCP, ProviderAzure:
		return true
	}
	return false
}

type ResourceType string

const (
	ResourceTypeInstance     ResourceType = "instance"
	ResourceTypeVolume       ResourceType = "volume"
	ResourceTypeSnapshot     ResourceType = "snapshot"
	ResourceTypeLoadBalancer ResourceType = "loadbalancer"

	// ResourceTypeAll is a filter value, never a concrete resource type.
	ResourceTypeAll ResourceType = "all"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeInstance, ResourceTypeVolume, ResourceTypeSnapshot, ResourceTypeLoadBalancer, ResourceTypeAll:
		return true
	}
	return false
}

type ResourceState string

const (
	StateRunning   ResourceState = "running"
	StateStopped   ResourceState = "stopped"
	StateAvailable ResourceState = "available"
	StateInUse     ResourceState = "in-use"
)

// Resource is a single billable item in a provider inventory.
type Resource struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        ResourceType      `json:"type"`
	Provider    CloudProvider     `json:"provider"`
	Region      string            `json:"region"`
	State       ResourceState     `json:"state"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	Utilization float64           `json:"utilization_pct"`
	MonthlyCost float64           `json:"monthly_cost_usd"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// AgeDays reports the whole days elapsed since creation. The second
// return is false when the creation date is unknown.
func (r *Resource) AgeDays(now time.Time) (int, bool) {
	if r.CreatedAt == nil {
		return 0, false
	}
	return int(now.Sub(*r.CreatedAt).Hours() / 24), true
}

// ScalingGroup is the unit the scaling flow operates on.
type ScalingGroup struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Provider  CloudProvider     `json:"provider"`
	Region    string            `json:"region"`
	Instances int               `json:"instances"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// ResourceSummary aggregates an inventory for listing output.
type ResourceSummary struct {
	Total       int                   `json:"total"`
	Running     int                   `json:"running"`
	Stopped     int                   `json:"stopped"`
	ByType      map[ResourceType]int  `json:"by_type"`
	ByState     map[ResourceState]int `json:"by_state"`
	MonthlyCost float64               `json:"monthly_cost_usd"`
}

func Summarize(resources []Resource) ResourceSummary {
	s := ResourceSummary{
		ByType:  make(map[ResourceType]int),
		ByState: make(map[ResourceState]int),
	}
	for i := range resources {
		r := &resources[i]
		s.Total++
		s.ByType[r.Type]++
		s.ByState[r.State]++
		s.MonthlyCost += r.MonthlyCost
		switch r.State {
		case StateRunning:
			s.Running++
		case StateStopped:
			s.Stopped++
		}
	}
	return s
}
