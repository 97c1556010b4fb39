// Package places implements the triage.Lookup interface on the Google
// Places Nearby Search API (v1).
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

const (
	// DefaultEndpoint is the production Places API base URL.
	DefaultEndpoint = "https://places.googleapis.com/v1"

	fieldMask      = "places.displayName,places.location"
	maxResultCount = 5
	httpTimeout    = 15 * time.Second
)

// Client queries the Places searchNearby endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	radius     float64
	httpClient *http.Client
}

// New creates a places client searching within radius meters. endpoint
// is overridable for tests; pass DefaultEndpoint in production.
func New(endpoint, apiKey string, radius float64) *Client {
	if radius <= 0 {
		radius = 5000
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		radius:     radius,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// includedType maps a facility category onto the Places type taxonomy.
func includedType(category triage.FacilityCategory) string {
	if category == triage.CategorySpecialist {
		return "doctor"
	}
	return string(category)
}

type searchRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type searchResponse struct {
	Places []struct {
		DisplayName struct {
			Text         string `json:"text"`
			LanguageCode string `json:"languageCode"`
		} `json:"displayName"`
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"places"`
}

// Nearby implements triage.Lookup: one category search around the given
// coordinates, at most maxResultCount results.
func (c *Client) Nearby(ctx context.Context, lat, lon float64, category triage.FacilityCategory) ([]triage.Facility, error) {
	var sr searchRequest
	sr.IncludedTypes = []string{includedType(category)}
	sr.MaxResultCount = maxResultCount
	sr.LocationRestriction.Circle.Center.Latitude = lat
	sr.LocationRestriction.Circle.Center.Longitude = lon
	sr.LocationRestriction.Circle.Radius = c.radius

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("places: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("places: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("places: api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("places: decode response: %w", err)
	}

	facilities := make([]triage.Facility, 0, len(out.Places))
	for _, p := range out.Places {
		facilities = append(facilities, triage.Facility{
			Latitude:    p.Location.Latitude,
			Longitude:   p.Location.Longitude,
			DisplayName: p.DisplayName.Text,
			Category:    category,
		})
	}
	return facilities, nil
}
