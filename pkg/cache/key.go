package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "deverp"

// CacheKey identifies one cached backend response.
type CacheKey struct {
	// Endpoint is the backend path (e.g. "/inventory/load-more/")
	Endpoint string

	// QueryParams are the query parameters (page, per_page, filters, search)
	QueryParams url.Values

	// Scope separates responses that differ per session, such as the
	// signed-in user. Empty for shared data.
	Scope string
}

// String generates a deterministic cache key string.
//
//	deverp:inventory/load-more:category=rings:page=2:scope=alice
//
// Query parameters are sorted; multi-valued parameters keep their order.
// Empty values are dropped because the backend treats them as absent.
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.QueryParams))
	for name := range k.QueryParams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range k.QueryParams[name] {
			if value == "" {
				continue
			}
			parts = append(parts, name+"="+value)
		}
	}

	if k.Scope != "" {
		parts = append(parts, "scope="+k.Scope)
	}

	return strings.Join(parts, ":")
}

// Pattern returns a Redis MATCH pattern covering every cached variant of
// the endpoint, used to invalidate listings after a mutation.
func Pattern(endpoint string) string {
	endpoint = strings.Trim(endpoint, "/")
	if endpoint == "" {
		return KeyPrefix + ":*"
	}
	return KeyPrefix + ":" + endpoint + "*"
}
