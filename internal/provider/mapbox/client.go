// Package mapbox adapts the Mapbox Geocoding API. Mapbox is the commercial
// provider in the chain: it requires an access token, bills per call, and is
// therefore disabled unless a token is configured and kept behind an
// optional rate limit for cost control.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/provider"
)

// Name identifies this adapter in chain ordering, logs, and metrics.
const Name = "mapbox"

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements provider.Adapter against Mapbox.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Mapbox client. maxRPS caps outbound calls when positive;
// zero disables the limiter.
func New(token string, timeout time.Duration, maxRPS float64, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if maxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxRPS), 1)
	}
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		limiter:    limiter,
		logger:     logger,
	}
}

func (c *Client) Name() string { return Name }

// Query searches Mapbox for text. Relevance is already a [0,1] score and is
// used as confidence directly.
func (c *Client) Query(ctx context.Context, text string, opts provider.QueryOptions) ([]domain.Candidate, error) {
	if c.token == "" {
		return nil, provider.NewError(Name, provider.KindAuth, errors.New("access token not configured"))
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, provider.NewError(Name, provider.KindTimeout, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	params := url.Values{"access_token": {c.token}}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	u := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(text), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, provider.NewError(Name, provider.KindUnavailable, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(Name, provider.ClassifyTransport(err), fmt.Errorf("geocode request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, provider.NewError(Name, provider.KindAuth, fmt.Errorf("status %d", resp.StatusCode))
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, provider.NewError(Name, provider.KindUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, provider.NewError(Name, provider.KindMalformed, fmt.Errorf("decode response: %w", err))
	}

	candidates := make([]domain.Candidate, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		cand, err := f.toCandidate()
		if err != nil {
			return nil, provider.NewError(Name, provider.KindMalformed, err)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Relevance float64        `json:"relevance"`
	PlaceType []string       `json:"place_type"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID   string `json:"id"` // e.g. "region.12345", "country.678"
	Text string `json:"text"`
}

func (f feature) toCandidate() (domain.Candidate, error) {
	if len(f.Center) != 2 {
		return domain.Candidate{}, fmt.Errorf("feature %q: expected [lon, lat] center, got %d values",
			f.PlaceName, len(f.Center))
	}

	var components domain.Components
	for _, c := range f.Context {
		switch {
		case strings.HasPrefix(c.ID, "region."):
			components.State = c.Text
		case strings.HasPrefix(c.ID, "country."):
			components.Country = c.Text
		}
	}

	placeType := domain.TypePOI
	if len(f.PlaceType) > 0 {
		placeType = mapPlaceType(f.PlaceType[0])
	}

	return domain.Candidate{
		DisplayName: f.PlaceName,
		Coordinates: domain.Coordinates{Lat: f.Center[1], Lng: f.Center[0]},
		Confidence:  f.Relevance,
		Type:        placeType,
		Components:  components,
		Provider:    Name,
	}, nil
}

func mapPlaceType(placeType string) string {
	switch placeType {
	case "place", "locality", "neighborhood":
		return domain.TypeCity
	case "region", "district", "country":
		return domain.TypeRegion
	case "address", "postcode":
		return domain.TypeAddress
	default:
		return domain.TypePOI
	}
}
