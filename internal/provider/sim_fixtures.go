package provider

import (
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// seed loads the canonical demo fleet for the configured cloud. Fixture
// utilizations straddle the default thresholds so every decision path is
// reachable out of the box: hot groups, idle groups, dead-zone groups,
// idle resources, old resources, and resources with no creation date.
func (p *SimProvider) seed() {
	now := p.nowFn()
	ago := func(days int) *time.Time {
		t := now.Add(-time.Duration(days) * 24 * time.Hour)
		return &t
	}

	switch p.name {
	case models.ProviderAWS:
		p.resources = []models.Resource{
			{
				ID: "i-0a1b2c3d4e5f6a7b8", Name: "legacy-cron", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(400), LastUsedAt: ago(210),
				Utilization: 3.2, MonthlyCost: 62.40,
				Tags: map[string]string{"env": "dev", "team": "platform"},
			},
			{
				ID: "i-0f9e8d7c6b5a4f3e2", Name: "api-canary", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(12), LastUsedAt: ago(0),
				Utilization: 55.0, MonthlyCost: 62.40,
				Tags: map[string]string{"env": "prod", "team": "api"},
			},
			{
				ID: "i-0123456789abcdef0", Name: "batch-runner", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateStopped,
				CreatedAt: ago(250), LastUsedAt: ago(97),
				Utilization: 0.0, MonthlyCost: 8.90,
				Tags: map[string]string{"env": "staging"},
			},
			{
				ID: "vol-0aa11bb22cc33dd44", Name: "orphaned-data", Type: models.ResourceTypeVolume,
				Provider: p.name, Region: p.region, State: models.StateAvailable,
				CreatedAt: ago(300), Utilization: 0.0, MonthlyCost: 12.80,
			},
			{
				ID: "vol-0dd44ee55ff66aa77", Name: "api-canary-data", Type: models.ResourceTypeVolume,
				Provider: p.name, Region: p.region, State: models.StateInUse,
				CreatedAt: ago(90), LastUsedAt: ago(0),
				Utilization: 41.0, MonthlyCost: 25.60,
				Tags: map[string]string{"env": "prod"},
			},
			{
				ID: "snap-0123abcd4567ef89", Name: "pre-migration-backup", Type: models.ResourceTypeSnapshot,
				Provider: p.name, Region: p.region, State: models.StateAvailable,
				CreatedAt: ago(500), Utilization: 0.0, MonthlyCost: 4.75,
			},
			{
				ID: "lb-prod-edge", Name: "prod-edge", Type: models.ResourceTypeLoadBalancer,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				LastUsedAt: ago(0),
				Utilization: 22.0, MonthlyCost: 22.27,
				Tags: map[string]string{"env": "prod"},
			},
		}
		p.addSeedGroup("asg-web", "web tier", 3, 82.5, 61.0)
		p.addSeedGroup("asg-api", "api tier", 4, 55.0, 48.0)
		p.addSeedGroup("asg-workers", "async workers", 6, 12.0, 18.0)

	case models.ProviderGCP:
		p.resources = []models.Resource{
			{
				ID: "instance-frontend-1", Name: "frontend-1", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(30), LastUsedAt: ago(0),
				Utilization: 48.0, MonthlyCost: 48.50,
				Tags: map[string]string{"env": "prod"},
			},
			{
				ID: "instance-ml-sandbox", Name: "ml-sandbox", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(95), LastUsedAt: ago(61),
				Utilization: 1.8, MonthlyCost: 310.00,
				Tags: map[string]string{"env": "dev", "team": "research"},
			},
			{
				ID: "disk-scratch-old", Name: "scratch-old", Type: models.ResourceTypeVolume,
				Provider: p.name, Region: p.region, State: models.StateAvailable,
				CreatedAt: ago(200), Utilization: 0.0, MonthlyCost: 17.20,
			},
			{
				ID: "snapshot-backup-2024q4", Name: "backup-2024q4", Type: models.ResourceTypeSnapshot,
				Provider: p.name, Region: p.region, State: models.StateAvailable,
				CreatedAt: ago(420), Utilization: 0.0, MonthlyCost: 3.10,
			},
		}
		p.addSeedGroup("mig-frontend", "frontend group", 2, 76.0, 55.0)
		p.addSeedGroup("mig-batch", "batch group", 8, 14.0, 22.0)

	case models.ProviderAzure:
		p.resources = []models.Resource{
			{
				ID: "vm-legacy-portal", Name: "legacy-portal", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(700), LastUsedAt: ago(340),
				Utilization: 6.5, MonthlyCost: 73.00,
				Tags: map[string]string{"env": "legacy"},
			},
			{
				ID: "vm-build-agent", Name: "build-agent", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(45), LastUsedAt: ago(0),
				Utilization: 62.0, MonthlyCost: 91.50,
				Tags: map[string]string{"env": "ci"},
			},
			{
				ID: "disk-legacy-portal-os", Name: "legacy-portal-os", Type: models.ResourceTypeVolume,
				Provider: p.name, Region: p.region, State: models.StateInUse,
				CreatedAt: ago(700), Utilization: 28.0, MonthlyCost: 9.60,
			},
			{
				ID: "snap-portal-weekly", Name: "portal-weekly", Type: models.ResourceTypeSnapshot,
				Provider: p.name, Region: p.region, State: models.StateAvailable,
				CreatedAt: ago(180), Utilization: 0.0, MonthlyCost: 2.20,
			},
		}
		p.addSeedGroup("vmss-app", "app scale set", 5, 68.0, 79.0)
		p.addSeedGroup("vmss-ingest", "ingest scale set", 3, 88.0, 74.0)

	default:
		p.resources = []models.Resource{
			{
				ID: "sim-node-1", Name: "sim-node-1", Type: models.ResourceTypeInstance,
				Provider: p.name, Region: p.region, State: models.StateRunning,
				CreatedAt: ago(60), Utilization: 40.0, MonthlyCost: 30.00,
			},
		}
		p.addSeedGroup("sim-group-1", "sim group", 2, 50.0, 50.0)
	}
}

func (p *SimProvider) addSeedGroup(id, name string, instances int, cpu, mem float64) {
	p.groups[id] = &models.ScalingGroup{
		ID:        id,
		Name:      name,
		Provider:  p.name,
		Region:    p.region,
		Instances: instances,
	}
	p.groupOrder = append(p.groupOrder, id)
	p.metrics[id] = models.MetricsSnapshot{CPUPercent: cpu, MemoryPercent: mem}
}

// ServiceLabel maps a resource type to the billing service name the
// given cloud reports it under.
func ServiceLabel(provider models.CloudProvider, t models.ResourceType) string {
	switch provider {
	case models.ProviderAWS:
		switch t {
		case models.ResourceTypeInstance:
			return "Amazon EC2"
		case models.ResourceTypeVolume:
			return "Amazon EBS"
		case models.ResourceTypeSnapshot:
			return "Amazon EBS Snapshots"
		case models.ResourceTypeLoadBalancer:
			return "Elastic Load Balancing"
		}
	case models.ProviderGCP:
		switch t {
		case models.ResourceTypeInstance:
			return "Compute Engine"
		case models.ResourceTypeVolume:
			return "Persistent Disk"
		case models.ResourceTypeSnapshot:
			return "Snapshots"
		case models.ResourceTypeLoadBalancer:
			return "Cloud Load Balancing"
		}
	case models.ProviderAzure:
		switch t {
		case models.ResourceTypeInstance:
			return "Virtual Machines"
		case models.ResourceTypeVolume:
			return "Managed Disks"
		case models.ResourceTypeSnapshot:
			return "Snapshots"
		case models.ResourceTypeLoadBalancer:
			return "Load Balancer"
		}
	}
	return "Other"
}
