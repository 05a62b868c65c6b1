// Package photon adapts the Komoot Photon geocoding API, a structured-places
// search built on OpenStreetMap data. Photon ranks its matches but emits no
// confidence score, so this adapter infers one from result rank and place
// type before candidates leave the package.
package photon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/provider"
)

// Name identifies this adapter in chain ordering, logs, and metrics.
const Name = "photon"

const defaultBaseURL = "https://photon.komoot.io/api"

// Client implements provider.Adapter against Photon.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Photon client. An empty baseURL selects the public instance.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Name() string { return Name }

// Query searches Photon for text and maps each GeoJSON feature to a
// candidate with an inferred confidence.
func (c *Client) Query(ctx context.Context, text string, opts provider.QueryOptions) ([]domain.Candidate, error) {
	params := url.Values{"q": {text}}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Language != "" {
		params.Set("lang", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, provider.NewError(Name, provider.KindUnavailable, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(Name, provider.ClassifyTransport(err), fmt.Errorf("search request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, provider.NewError(Name, provider.KindUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, provider.NewError(Name, provider.KindMalformed, fmt.Errorf("decode response: %w", err))
	}

	candidates := make([]domain.Candidate, 0, len(fc.Features))
	for rank, f := range fc.Features {
		cand, err := f.toCandidate(rank)
		if err != nil {
			return nil, provider.NewError(Name, provider.KindMalformed, err)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// Photon GeoJSON response shape.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		Name    string `json:"name"`
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
		Type    string `json:"type"`
	} `json:"properties"`
}

func (f feature) toCandidate(rank int) (domain.Candidate, error) {
	if len(f.Geometry.Coordinates) != 2 {
		return domain.Candidate{}, fmt.Errorf("feature %q: expected [lon, lat] pair, got %d values",
			f.Properties.Name, len(f.Geometry.Coordinates))
	}

	placeType := mapOSMType(f.Properties.Type)
	return domain.Candidate{
		DisplayName: displayName(f),
		Coordinates: domain.Coordinates{
			Lat: f.Geometry.Coordinates[1],
			Lng: f.Geometry.Coordinates[0],
		},
		Confidence: inferConfidence(rank, placeType),
		Type:       placeType,
		Components: domain.Components{
			State:   f.Properties.State,
			Country: f.Properties.Country,
		},
		Provider: Name,
	}, nil
}

// displayName assembles a human-readable name from the feature's parts,
// since Photon has no formatted-address field.
func displayName(f feature) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{f.Properties.Name, f.Properties.City, f.Properties.State, f.Properties.Country} {
		if p != "" && (len(parts) == 0 || parts[len(parts)-1] != p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Base confidence per place type. Cities rank above landmarks above streets:
// a bare place name is far more often a settlement than an address.
var typeConfidence = map[string]float64{
	domain.TypeCity:    0.9,
	domain.TypeRegion:  0.85,
	domain.TypePOI:     0.8,
	domain.TypeAddress: 0.7,
}

// inferConfidence derives a [0,1] score from result rank and place type,
// decaying by 0.1 per rank position with a floor of 0.1.
func inferConfidence(rank int, placeType string) float64 {
	conf := typeConfidence[placeType] - 0.1*float64(rank)
	if conf < 0.1 {
		return 0.1
	}
	return conf
}

func mapOSMType(osmType string) string {
	switch osmType {
	case "city", "town", "village", "hamlet", "district", "locality":
		return domain.TypeCity
	case "state", "county", "country", "region":
		return domain.TypeRegion
	case "house", "street":
		return domain.TypeAddress
	default:
		return domain.TypePOI
	}
}
