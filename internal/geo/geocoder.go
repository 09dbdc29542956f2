package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rate-estimator/internal/metrics"
)

// ErrNoResult is returned when the geocoder has no coordinates for an address.
var ErrNoResult = errors.New("geo: no coordinates for address")

// DefaultGoogleURL is the Google Geocoding API endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// GoogleGeocoder calls the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleGeocoder creates a client. An empty baseURL selects DefaultGoogleURL.
func NewGoogleGeocoder(apiKey, baseURL string, timeout time.Duration) *GoogleGeocoder {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location Point `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first result's location.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	p, err := g.geocode(ctx, address)
	switch {
	case err == nil:
		metrics.GeocoderCalls.WithLabelValues(metrics.OutcomeOK).Inc()
	case errors.Is(err, ErrNoResult):
		metrics.GeocoderCalls.WithLabelValues("no_result").Inc()
	default:
		metrics.GeocoderCalls.WithLabelValues(metrics.OutcomeError).Inc()
	}
	return p, err
}

func (g *GoogleGeocoder) geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, ErrNoResult
	}

	params := url.Values{}
	params.Add("address", address)
	params.Add("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocode: unexpected status code %d", resp.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Point{}, ErrNoResult
	default:
		return Point{}, fmt.Errorf("geocode: status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return Point{}, ErrNoResult
	}
	return body.Results[0].Geometry.Location, nil
}
