package provider

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

var (
	ErrRetrievalFailed = errors.New("inventory retrieval failed")
	ErrGroupNotFound   = errors.New("scaling group not found")
	ErrApplyFailed     = errors.New("apply failed")
	ErrInvalidResponse = errors.New("invalid response from provider backend")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrTimeout         = errors.New("provider call timed out")
)

// Provider is the capability set one cloud account exposes to the flows.
// Decision logic never branches on which cloud it is talking to; it
// consumes this interface only.
type Provider interface {
	Name() models.CloudProvider

	// FetchInventory lists resources of one type, or all of them with
	// models.ResourceTypeAll. Failure is fatal to the calling command.
	FetchInventory(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error)

	// FetchGroups lists the scaling groups the scale flow operates on.
	FetchGroups(ctx context.Context) ([]models.ScalingGroup, error)

	// FetchMetrics returns the trailing-window utilization sample for a
	// group. A backend with no datapoints returns
	// models.ErrMetricsUnavailable, never a zeroed sample.
	FetchMetrics(ctx context.Context, groupID string) (*models.UtilizationSample, error)

	// FetchServiceCosts returns per-service spend for the date range.
	FetchServiceCosts(ctx context.Context, start, end time.Time) ([]models.ServiceCost, error)

	// ApplyScaling sets the group's capacity to the action's target.
	ApplyScaling(ctx context.Context, action *models.ScalingAction) error

	// DeleteResource removes one resource.
	DeleteResource(ctx context.Context, resourceID string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
