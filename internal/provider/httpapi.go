package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Wire envelopes shared between the HTTP backend and the fleet simulator
// service. Keeping them here means both sides decode the same shapes.
type (
	InventoryResponse struct {
		Resources []models.Resource `json:"resources"`
	}
	GroupsResponse struct {
		Groups []models.ScalingGroup `json:"groups"`
	}
	CapacityRequest struct {
		Instances int `json:"instances"`
	}
	CostsResponse struct {
		Costs []models.ServiceCost `json:"costs"`
	}
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// HTTPProvider talks to a fleet endpoint that speaks the simulator API.
// It maps transport and status failures onto the package sentinels so
// callers never inspect HTTP details.
type HTTPProvider struct {
	name    models.CloudProvider
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(name models.CloudProvider, baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() models.CloudProvider {
	return p.name
}

func (p *HTTPProvider) FetchInventory(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error) {
	endpoint := fmt.Sprintf("%s/v1/inventory?type=%s", p.baseURL, url.QueryEscape(string(resourceType)))
	var payload InventoryResponse
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Resources, nil
}

func (p *HTTPProvider) FetchGroups(ctx context.Context) ([]models.ScalingGroup, error) {
	var payload GroupsResponse
	if err := p.getJSON(ctx, p.baseURL+"/v1/groups", &payload); err != nil {
		return nil, err
	}
	return payload.Groups, nil
}

func (p *HTTPProvider) FetchMetrics(ctx context.Context, groupID string) (*models.UtilizationSample, error) {
	endpoint := fmt.Sprintf("%s/v1/groups/%s/metrics", p.baseURL, url.PathEscape(groupID))
	var sample models.UtilizationSample
	if err := p.getJSON(ctx, endpoint, &sample); err != nil {
		return nil, err
	}
	if !sample.Complete() {
		return nil, fmt.Errorf("%w: group %s reported no datapoints", models.ErrMetricsUnavailable, groupID)
	}
	return &sample, nil
}

func (p *HTTPProvider) FetchServiceCosts(ctx context.Context, start, end time.Time) ([]models.ServiceCost, error) {
	endpoint := fmt.Sprintf("%s/v1/costs?start=%s&end=%s",
		p.baseURL,
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)))
	var payload CostsResponse
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Costs, nil
}

func (p *HTTPProvider) ApplyScaling(ctx context.Context, action *models.ScalingAction) error {
	endpoint := fmt.Sprintf("%s/v1/groups/%s/capacity", p.baseURL, url.PathEscape(action.GroupID))
	body, err := json.Marshal(CapacityRequest{Instances: action.TargetInstances})
	if err != nil {
		return fmt.Errorf("%w: encode capacity request: %v", ErrApplyFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportError(err, ErrApplyFailed)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrGroupNotFound, action.GroupID)
	default:
		return fmt.Errorf("%w: %s", ErrApplyFailed, readError(resp))
	}
}

func (p *HTTPProvider) DeleteResource(ctx context.Context, resourceID string) error {
	endpoint := fmt.Sprintf("%s/v1/resources/%s", p.baseURL, url.PathEscape(resourceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportError(err, ErrApplyFailed)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: resource %s not found", ErrApplyFailed, resourceID)
	default:
		return fmt.Errorf("%w: %s", ErrApplyFailed, readError(resp))
	}
}

func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportError(err, ErrRetrievalFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned %d", ErrRetrievalFailed, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportError(err, ErrRetrievalFailed)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrGroupNotFound, readError(resp))
	default:
		return fmt.Errorf("%w: endpoint %s returned %d", ErrRetrievalFailed, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (p *HTTPProvider) transportError(err error, fallback error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func readError(resp *http.Response) string {
	var payload ErrorResponse
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
