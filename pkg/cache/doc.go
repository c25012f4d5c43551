// Package cache stores backend GET responses in Redis so repeated listing
// requests (same page, same filters) can be revalidated with conditional
// requests instead of re-downloading the page.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.Options{})
//
//	key := cache.CacheKey{
//		Endpoint:    "/inventory/load-more/",
//		QueryParams: url.Values{"page": []string{"2"}, "category": []string{"rings"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the backend
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// the backend answers 304 when the page did not change
//	}
//
// # Freshness
//
// Entries expire at the response's Expires header when present. The Django
// backend rarely sends one, so the manager falls back to Options.DefaultTTL.
//
// # Metrics
//
//   - deverp_cache_hits_total{layer="redis"}
//   - deverp_cache_misses_total
//   - deverp_cache_size_bytes{layer="redis"}
//   - deverp_304_responses_total
//   - deverp_conditional_requests_total
//   - deverp_cache_errors_total{operation}
package cache
