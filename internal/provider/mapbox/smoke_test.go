//go:build mapbox

package mapbox

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/place-resolver/internal/provider"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/provider/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return New(token, 10*time.Second, 0, discardLogger())
}

func TestSmoke_Query(t *testing.T) {
	c := smokeClient(t)

	candidates, err := c.Query(context.Background(), "austin texas", provider.QueryOptions{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	first := candidates[0]
	assert.InDelta(t, 30.27, first.Coordinates.Lat, 0.5, "lat should be near Austin")
	assert.InDelta(t, -97.74, first.Coordinates.Lng, 0.5, "lng should be near Austin")
	assert.Contains(t, first.DisplayName, "Austin")
	assert.Greater(t, first.Confidence, 0.5)
	assert.Equal(t, "Texas", first.Components.State)
}

func TestSmoke_Query_Nonsense(t *testing.T) {
	c := smokeClient(t)

	// Mapbox's fuzzy matching may still return something for nonsense
	// queries; the adapter just has to handle the response without error.
	_, err := c.Query(context.Background(), "xyznonexistent99 zz", provider.QueryOptions{Limit: 1})
	require.NoError(t, err)
}
