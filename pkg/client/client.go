// Package client is a typed Go consumer of the HTTP API, mirroring the
// calls the browser front end issues.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/dashboard"
	"github.com/verdantlab/floralog/pkg/locations"
	"github.com/verdantlab/floralog/pkg/samples"
	"github.com/verdantlab/floralog/pkg/session"
)

// APIError is a non-2xx response, carrying the server's error message when
// the body held one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the HTTP API.
type Client struct {
	baseURL string
	authID  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAuthID attaches the caller's identity to every request.
func WithAuthID(authID string) Option {
	return func(c *Client) { c.authID = authID }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the API served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request and decodes the JSON response into out when out is
// non-nil. Non-2xx responses become an *APIError with the server's error
// message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authID != "" {
		req.Header.Set(session.AuthIDHeader, c.authID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode error: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}

// LocationRequest is the write payload for a sampling location.
type LocationRequest struct {
	Name         *string        `json:"name,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Region       *string        `json:"region,omitempty"`
	Municipality *string        `json:"municipality,omitempty"`
	Province     *string        `json:"province,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ListLocations lists locations, optionally narrowed by a region substring.
func (c *Client) ListLocations(ctx context.Context, region string) ([]locations.Location, error) {
	query := url.Values{}
	if region != "" {
		query.Set("region", region)
	}
	var out []locations.Location
	if err := c.do(ctx, http.MethodGet, "/api/locations", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLocation creates a sampling location.
func (c *Client) CreateLocation(ctx context.Context, req LocationRequest) (*locations.Location, error) {
	var out locations.Location
	if err := c.do(ctx, http.MethodPost, "/api/locations", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLocation reads one location.
func (c *Client) GetLocation(ctx context.Context, id string) (*locations.Location, error) {
	var out locations.Location
	if err := c.do(ctx, http.MethodGet, "/api/locations/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLocation replaces a location's fields.
func (c *Client) UpdateLocation(ctx context.Context, id string, req LocationRequest) (*locations.Location, error) {
	var out locations.Location
	if err := c.do(ctx, http.MethodPut, "/api/locations/"+id, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLocation removes a location.
func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/locations/"+id, nil, nil, nil)
}

// ResearcherRequest is the write payload for a researcher profile.
type ResearcherRequest struct {
	FullName    string         `json:"full_name"`
	Affiliation *string        `json:"affiliation,omitempty"`
	Contact     map[string]any `json:"contact,omitempty"`
	AuthID      *string        `json:"auth_id,omitempty"`
}

// ListResearchers lists researchers, optionally narrowed by a free-text
// query across name, affiliation, and contact.
func (c *Client) ListResearchers(ctx context.Context, q string) ([]models.Researcher, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	var out []models.Researcher
	if err := c.do(ctx, http.MethodGet, "/api/researchers", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateResearcher creates a researcher profile.
func (c *Client) CreateResearcher(ctx context.Context, req ResearcherRequest) (*models.Researcher, error) {
	var out models.Researcher
	if err := c.do(ctx, http.MethodPost, "/api/researchers", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResearcher reads one researcher.
func (c *Client) GetResearcher(ctx context.Context, id string) (*models.Researcher, error) {
	var out models.Researcher
	if err := c.do(ctx, http.MethodGet, "/api/researchers/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateResearcher replaces a researcher's fields.
func (c *Client) UpdateResearcher(ctx context.Context, id string, req ResearcherRequest) (*models.Researcher, error) {
	var out models.Researcher
	if err := c.do(ctx, http.MethodPut, "/api/researchers/"+id, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResearcher removes a researcher.
func (c *Client) DeleteResearcher(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/researchers/"+id, nil, nil, nil)
}

// Me reads the researcher profile linked to the client's identity.
func (c *Client) Me(ctx context.Context) (*models.Researcher, error) {
	var out models.Researcher
	if err := c.do(ctx, http.MethodGet, "/api/researchers/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PickedCoordinates is a map-picker coordinate pair attached to a sample
// create request.
type PickedCoordinates struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Desc string  `json:"desc,omitempty"`
}

// EnvironmentalRequest is the reading payload shared by a sample write.
type EnvironmentalRequest struct {
	Temperature *float64       `json:"temperature,omitempty"`
	Humidity    *float64       `json:"humidity,omitempty"`
	SoilPH      *float64       `json:"soil_ph,omitempty"`
	Altitude    *float64       `json:"altitude,omitempty"`
	SoilType    *string        `json:"soil_type,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// SampleEntry is one plant within a sample write.
type SampleEntry struct {
	ScientificName string         `json:"scientific_name"`
	CommonName     *string        `json:"common_name,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// SampleRequest is the write payload for one sample.
type SampleRequest struct {
	SampleEntry
	LocationID    *string               `json:"location_id,omitempty"`
	ResearcherID  *string               `json:"researcher_id,omitempty"`
	SampleDate    string                `json:"sample_date,omitempty"`
	Coordinates   *PickedCoordinates    `json:"coordinates,omitempty"`
	Environmental *EnvironmentalRequest `json:"environmental,omitempty"`
}

// SampleBatchRequest logs several samples sharing one location, researcher,
// date, and reading.
type SampleBatchRequest struct {
	Samples       []SampleEntry         `json:"samples"`
	LocationID    *string               `json:"location_id,omitempty"`
	ResearcherID  *string               `json:"researcher_id,omitempty"`
	SampleDate    string                `json:"sample_date,omitempty"`
	Coordinates   *PickedCoordinates    `json:"coordinates,omitempty"`
	Environmental *EnvironmentalRequest `json:"environmental,omitempty"`
}

// SampleListOptions narrows a sample listing.
type SampleListOptions struct {
	ResearcherID string
	LocationID   string
	Limit        int
}

// ListSamples lists samples newest-first.
func (c *Client) ListSamples(ctx context.Context, opts SampleListOptions) ([]samples.Sample, error) {
	query := url.Values{}
	if opts.ResearcherID != "" {
		query.Set("researcher_id", opts.ResearcherID)
	}
	if opts.LocationID != "" {
		query.Set("location_id", opts.LocationID)
	}
	if opts.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	var out []samples.Sample
	if err := c.do(ctx, http.MethodGet, "/api/samples", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSample logs one sample.
func (c *Client) CreateSample(ctx context.Context, req SampleRequest) (*samples.Sample, error) {
	var out samples.Sample
	if err := c.do(ctx, http.MethodPost, "/api/samples", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSampleBatch logs several samples in one request.
func (c *Client) CreateSampleBatch(ctx context.Context, req SampleBatchRequest) ([]samples.Sample, error) {
	var out []samples.Sample
	if err := c.do(ctx, http.MethodPost, "/api/samples", nil, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSample reads one sample with its relations.
func (c *Client) GetSample(ctx context.Context, id string) (*samples.Sample, error) {
	var out samples.Sample
	if err := c.do(ctx, http.MethodGet, "/api/samples/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSample replaces a sample and its reading.
func (c *Client) UpdateSample(ctx context.Context, id string, req SampleRequest) (*samples.Sample, error) {
	var out samples.Sample
	if err := c.do(ctx, http.MethodPut, "/api/samples/"+id, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSample removes a sample.
func (c *Client) DeleteSample(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/samples/"+id, nil, nil, nil)
}

// Stats reads the dashboard payload.
func (c *Client) Stats(ctx context.Context) (*dashboard.Stats, error) {
	var out dashboard.Stats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyticsOptions narrows the reports aggregation.
type AnalyticsOptions struct {
	TimeRange  string
	LocationID string
	Species    string
}

// Analytics reads the reports aggregation.
func (c *Client) Analytics(ctx context.Context, opts AnalyticsOptions) (*dashboard.Analytics, error) {
	query := url.Values{}
	if opts.TimeRange != "" {
		query.Set("timeRange", opts.TimeRange)
	}
	if opts.LocationID != "" {
		query.Set("locationId", opts.LocationID)
	}
	if opts.Species != "" {
		query.Set("species", opts.Species)
	}
	var out dashboard.Analytics
	if err := c.do(ctx, http.MethodGet, "/api/reports/analytics", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
