// Package domain models free-text place resolution.
//
// # Queries
//
// A query is an arbitrary place description typed by a user: "Disney World",
// "near Tahoe", "Austin, Texas". Queries are canonicalized by [Normalize]
// (lower-case, trimmed, single-spaced) before being used as cache keys or
// sent to providers, so "  Tahoe " and "TAHOE" resolve through the same
// cache entry.
//
// # Confidence
//
// Every geocoding backend reports certainty differently: Nominatim emits an
// "importance" score that is roughly [0,1] but can overshoot for globally
// significant places, Photon emits no score at all, and Mapbox emits a
// "relevance" in [0,1]. Each provider adapter maps its native signal onto the
// shared [0,1] scale before a [Candidate] leaves the adapter, so everything
// downstream (the chain's acceptance threshold, the disambiguator's epsilon
// comparison, the alternatives floor) compares like with like.
//
// # Place types
//
// Candidates carry one of four categorical tags: [TypeCity] for populated
// places, [TypeRegion] for administrative areas above city level, [TypePOI]
// for landmarks and attractions, and [TypeAddress] for street-level matches.
// Adapters map backend-specific taxonomies onto these four.
package domain
