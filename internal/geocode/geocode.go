// Package geocode resolves street addresses to coordinates through the
// Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ayush/places-api/internal/models"
)

var (
	// ErrAddressNotFound means the API answered but had no usable match.
	ErrAddressNotFound = errors.New("address not found")
	// ErrUnavailable means the API could not be reached or refused the request.
	ErrUnavailable = errors.New("geocoding unavailable")
)

// Client calls the geocoding endpoint with a fixed API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location *struct {
				Lat *float64 `json:"lat"`
				Lng *float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// checkResp returns an error including the upstream body when the status is
// not 2xx.
func checkResp(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: geocode returned %d: %s", ErrUnavailable, resp.StatusCode, string(body))
}

// Coordinates returns the location of the first match for address.
func (c *Client) Coordinates(ctx context.Context, address string) (models.Location, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Location{}, fmt.Errorf("geocode url: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("geocode request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return models.Location{}, err
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Location{}, fmt.Errorf("%w: decode: %v", ErrAddressNotFound, err)
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return models.Location{}, ErrAddressNotFound
	default:
		return models.Location{}, fmt.Errorf("%w: status %s: %s", ErrUnavailable, result.Status, result.ErrorMessage)
	}

	if len(result.Results) == 0 {
		return models.Location{}, ErrAddressNotFound
	}
	loc := result.Results[0].Geometry.Location
	if loc == nil || loc.Lat == nil || loc.Lng == nil {
		return models.Location{}, fmt.Errorf("%w: first result has no coordinates", ErrAddressNotFound)
	}
	return models.Location{Lat: *loc.Lat, Lng: *loc.Lng}, nil
}
