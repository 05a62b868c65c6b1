// Package nominatim adapts the OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/provider"
)

// Name identifies this adapter in chain ordering, logs, and metrics.
const Name = "nominatim"

const defaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Client implements provider.Adapter against Nominatim. The public instance
// requires an identifying User-Agent and caps clients at one request per
// second; the limiter enforces that before every call.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Nominatim client. An empty baseURL selects the public
// instance.
func New(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     logger,
	}
}

func (c *Client) Name() string { return Name }

// Query searches Nominatim for text and maps each match to a candidate.
func (c *Client) Query(ctx context.Context, text string, opts provider.QueryOptions) ([]domain.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, provider.NewError(Name, provider.KindTimeout, fmt.Errorf("rate limit wait: %w", err))
	}

	params := url.Values{
		"q":              {text},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Language != "" {
		params.Set("accept-language", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, provider.NewError(Name, provider.KindUnavailable, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(Name, provider.ClassifyTransport(err), fmt.Errorf("search request: %w", err))
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

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, provider.NewError(Name, provider.KindMalformed, fmt.Errorf("decode response: %w", err))
	}

	candidates := make([]domain.Candidate, 0, len(places))
	for _, p := range places {
		cand, err := p.toCandidate()
		if err != nil {
			return nil, provider.NewError(Name, provider.KindMalformed, err)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// Nominatim jsonv2 response shape. Coordinates arrive as strings.
type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	AddressType string  `json:"addresstype"`
	Address     struct {
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func (p place) toCandidate() (domain.Candidate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.Candidate{
		DisplayName: p.DisplayName,
		Coordinates: domain.Coordinates{Lat: lat, Lng: lng},
		Confidence:  normalizeImportance(p.Importance),
		Type:        mapAddressType(p.AddressType),
		Components: domain.Components{
			State:   p.Address.State,
			Country: p.Address.Country,
		},
		Provider: Name,
	}, nil
}

// normalizeImportance clamps Nominatim's importance score to [0,1]. The score
// can exceed 1 for globally significant places and is absent (zero) for some
// minor features, which get a middling default rather than zero certainty.
func normalizeImportance(v float64) float64 {
	switch {
	case v <= 0:
		return 0.5
	case v > 1:
		return 1
	default:
		return v
	}
}

func mapAddressType(addressType string) string {
	switch addressType {
	case "city", "town", "village", "hamlet", "municipality", "suburb":
		return domain.TypeCity
	case "state", "region", "county", "province", "country":
		return domain.TypeRegion
	case "house", "building", "residential", "road":
		return domain.TypeAddress
	default:
		return domain.TypePOI
	}
}
