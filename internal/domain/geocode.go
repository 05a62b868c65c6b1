package domain

// Place type tags attached to candidates and results.
const (
	TypeCity    = "city"
	TypeRegion  = "region"
	TypePOI     = "poi"
	TypeAddress = "address"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Components holds the administrative components of a match, when known.
type Components struct {
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Candidate is a single match returned by a provider adapter, with the
// provider's native confidence signal already normalized to [0,1].
type Candidate struct {
	DisplayName string
	Coordinates Coordinates
	Confidence  float64
	Type        string
	Components  Components
	Provider    string
}

// Alternative is a lower-ranked candidate attached to a GeocodeResult.
type Alternative struct {
	DisplayName string      `json:"displayName"`
	Coordinates Coordinates `json:"coordinates"`
	Confidence  float64     `json:"confidence"`
}

// GeocodeResult is the outcome of one successful resolution. Immutable once
// produced; cached and returned to callers as-is.
type GeocodeResult struct {
	// Query is the original input string, preserved without normalization.
	Query       string      `json:"query"`
	DisplayName string      `json:"displayName"`
	Coordinates Coordinates `json:"coordinates"`
	Confidence  float64     `json:"confidence"`
	Type        string      `json:"type"`
	Components  Components  `json:"components"`

	// Providers lists every adapter whose candidates reached the
	// disambiguator for this resolution, winning provider first.
	Providers []string `json:"providers"`

	// Alternatives holds lower-ranked candidates, most confident first.
	Alternatives []Alternative `json:"alternatives"`
}
