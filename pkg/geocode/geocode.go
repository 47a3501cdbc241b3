// Package geocode resolves a coordinate pair into administrative place names
// (municipality, province, country) via the external geocoding service. One
// best-effort call per location write; no caching, no retries.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production endpoint of the geocoding service.
const DefaultBaseURL = "https://api.mapbox.com"

// Place is the extracted reverse-geocoding result. Raw retains the entire
// service response so it can be stored as opaque metadata alongside the
// extracted fields.
type Place struct {
	Municipality string
	Province     string
	Country      string
	PostalCode   string
	Raw          map[string]any
}

// Client calls the reverse-geocoding service.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client with the given API token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response mirrors the subset of the feature list the adapter reads.
type response struct {
	Features []struct {
		Text      string `json:"text"`
		PlaceName string `json:"place_name"`
		Context   []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"context"`
	} `json:"features"`
}

// Reverse resolves a latitude/longitude pair. It fails fast when the token
// is absent or the HTTP call does not succeed.
func (c *Client) Reverse(ctx context.Context, latitude, longitude float64) (*Place, error) {
	if c.token == "" {
		return nil, fmt.Errorf("geocoding token is not configured")
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s",
		c.baseURL, longitude, latitude,
		url.Values{"access_token": {c.token}, "types": {"address,place,locality,region,country,postcode"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoding service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read geocoding response: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	place := &Place{}
	_ = json.Unmarshal(body, &place.Raw)

	// Scan every feature's context, keeping the first non-empty value found
	// for each field.
	for _, feature := range parsed.Features {
		for _, entry := range feature.Context {
			switch {
			case hasPrefix(entry.ID, "locality", "place"):
				if place.Municipality == "" {
					place.Municipality = entry.Text
				}
			case hasPrefix(entry.ID, "region"):
				if place.Province == "" {
					place.Province = entry.Text
				}
			case hasPrefix(entry.ID, "country"):
				if place.Country == "" {
					place.Country = entry.Text
				}
			case hasPrefix(entry.ID, "postcode"):
				if place.PostalCode == "" {
					place.PostalCode = entry.Text
				}
			}
		}
	}

	// Fall back to the top feature's name when no municipality was found in
	// any context.
	if place.Municipality == "" && len(parsed.Features) > 0 {
		top := parsed.Features[0]
		if top.Text != "" {
			place.Municipality = top.Text
		} else {
			place.Municipality = top.PlaceName
		}
	}

	return place, nil
}

func hasPrefix(id string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
