package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/deverp-client/internal/testutil"
	"github.com/Sternrassler/deverp-client/pkg/cache"
	"github.com/Sternrassler/deverp-client/pkg/client"
	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/notify"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
	"github.com/Sternrassler/deverp-client/pkg/workflow"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs Docker")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClient(t *testing.T, rdb *redis.Client, backend *testutil.MockBackend, retries int) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig(backend.URL(), "deverp-integration/1.0")
	cfg.Redis = rdb
	cfg.MaxRetries = retries
	cfg.InitialBackoff = 10 * time.Millisecond
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestInfiniteScrollFlow loads the listing page by page through the
// synchronizer with Redis attached, the way the browser does while scrolling.
func TestInfiniteScrollFlow(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetProducts(testutil.Products(45))

	c := newClient(t, rdb, backend, 0)
	center := notify.NewCenter(notify.DefaultTTL)
	opts := inventory.SyncOptions()
	opts.PerPage = 20
	list := pagination.New[inventory.Product](inventory.NewProductSource(c), nil, center, opts)

	ctx := context.Background()
	outcome, err := list.ApplyFilters(ctx, inventory.Filters{}.Map())
	if err != nil || outcome != pagination.OutcomeLoaded {
		t.Fatalf("ApplyFilters() = %v, %v", outcome, err)
	}

	for list.Snapshot().HasMore {
		if _, err := list.LoadNextPage(ctx); err != nil {
			t.Fatalf("LoadNextPage() error = %v", err)
		}
	}

	snap := list.Snapshot()
	if len(snap.Items) != 45 {
		t.Errorf("items = %d, want 45", len(snap.Items))
	}
	if snap.Total != 45 {
		t.Errorf("total = %d, want 45", snap.Total)
	}
	if backend.ListingCount() != 3 {
		t.Errorf("listing requests = %d, want 3", backend.ListingCount())
	}
	if outcome, _ := list.LoadNextPage(ctx); outcome != pagination.OutcomeSkipped {
		t.Errorf("LoadNextPage() after the end = %v, want skipped", outcome)
	}
	if n := len(center.Active(time.Now())); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

// TestConditionalListing verifies a cached page is revalidated with its ETag
// and served from Redis on 304.
func TestConditionalListing(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()

	body, _ := json.Marshal(map[string]any{
		"success":  true,
		"products": testutil.Products(3),
		"has_more": false,
	})
	backend.SetHandler(testutil.ListingPath, testutil.NewConditionalHandler(`"listing-v1"`, string(body)))

	c := newClient(t, rdb, backend, 0)
	source := inventory.NewProductSource(c)
	ctx := context.Background()
	req := pagination.PageRequest{Page: 1, PerPage: 50, Filters: inventory.Filters{}.Map()}

	first, err := source.FetchPage(ctx, req)
	if err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}
	second, err := source.FetchPage(ctx, req)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}

	if backend.ConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", backend.ConditionalCount())
	}
	if len(second.Items) != len(first.Items) || second.Items[0].DesignNo != first.Items[0].DesignNo {
		t.Errorf("304 page = %+v, want the cached page", second.Items)
	}
}

// TestActionInvalidatesListing verifies a workflow mutation drops cached
// listing pages.
func TestActionInvalidatesListing(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetHandler(testutil.ListingPath, testutil.NewConditionalHandler(`"listing-v1"`, `{"success":true,"products":[],"has_more":false}`))
	backend.AddRequest(testutil.MockRequest{ID: 7, Status: "pending", CanApprove: true})

	c := newClient(t, rdb, backend, 0)
	ctx := context.Background()

	if _, err := inventory.NewProductSource(c).FetchPage(ctx, pagination.PageRequest{Page: 1, PerPage: 50}); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	keys, err := rdb.Keys(ctx, cache.Pattern(client.ListingPath)).Result()
	if err != nil || len(keys) == 0 {
		t.Fatalf("cached listing keys = %v, %v; want at least one", keys, err)
	}

	svc := workflow.NewService(c, nil)
	if _, err := svc.Perform(ctx, 7, workflow.ActionApprove, ""); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	keys, err = rdb.Keys(ctx, cache.Pattern(client.ListingPath)).Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("listing keys after approve = %v, want none", keys)
	}
}

// TestRateLimitBlock verifies a 429 blocks later requests without a round
// trip while the window lasts.
func TestRateLimitBlock(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetResponse(testutil.ListingPath, testutil.NewRateLimitResponse(60))

	c := newClient(t, rdb, backend, 0)
	source := inventory.NewProductSource(c)
	ctx := context.Background()
	req := pagination.PageRequest{Page: 1, PerPage: 50}

	if _, err := source.FetchPage(ctx, req); client.ClassOf(err) != client.ErrorClassRateLimit {
		t.Fatalf("first FetchPage() error = %v, want rate limit class", err)
	}

	_, err := source.FetchPage(ctx, req)
	if !errors.Is(err, client.ErrRateLimited) {
		t.Errorf("second FetchPage() error = %v, want ErrRateLimited", err)
	}
	if backend.ListingCount() != 1 {
		t.Errorf("listing requests = %d, want 1", backend.ListingCount())
	}
}

// TestRetry5xxErrors verifies listing reads are retried on server errors
// and the synchronizer notifies once they are exhausted.
func TestRetry5xxErrors(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetResponse(testutil.ListingPath, testutil.NewServerErrorResponse())

	c := newClient(t, rdb, backend, 2)
	center := notify.NewCenter(notify.DefaultTTL)
	list := pagination.New[inventory.Product](inventory.NewProductSource(c), nil, center, inventory.SyncOptions())

	outcome, err := list.ApplyFilters(context.Background(), nil)
	if outcome != pagination.OutcomeFailed || err == nil {
		t.Fatalf("ApplyFilters() = %v, %v; want failure", outcome, err)
	}
	if backend.ListingCount() != 3 {
		t.Errorf("listing requests = %d, want 3", backend.ListingCount())
	}

	active := center.Active(time.Now())
	if len(active) != 1 || active[0].Message != inventory.FailureMessage {
		t.Errorf("notifications = %+v, want one failure message", active)
	}
	if snap := list.Snapshot(); !snap.HasMore || snap.CurrentPage != 1 {
		t.Errorf("state after failure = page %d has_more %v, want retryable page 1", snap.CurrentPage, snap.HasMore)
	}
}

// TestNoRetry4xxErrors verifies workflow mutations are never retried.
func TestNoRetry4xxErrors(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()

	c := newClient(t, rdb, backend, 3)
	_, err := workflow.NewService(c, nil).Perform(context.Background(), 404, workflow.ActionApprove, "")
	if err == nil {
		t.Fatal("expected an error for a missing request")
	}
	if client.MessageOf(err) != "request not found" {
		t.Errorf("message = %q, want backend message", client.MessageOf(err))
	}
	if backend.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", backend.RequestCount())
	}
}

// TestExportAll fetches every page concurrently with Redis attached.
func TestExportAll(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetProducts(testutil.Products(130))

	c := newClient(t, rdb, backend, 0)
	cfg := pagination.DefaultBatchConfig()
	cfg.PerPage = 25

	products, err := inventory.ExportAll(context.Background(), c, inventory.Filters{Status: inventory.StatusInStock}, cfg)
	if err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}
	// Every third product is out of stock.
	if len(products) != 87 {
		t.Errorf("products = %d, want 87", len(products))
	}
	for i := 1; i < len(products); i++ {
		if products[i-1].DesignNo >= products[i].DesignNo {
			t.Fatalf("products out of order at %d: %s then %s", i, products[i-1].DesignNo, products[i].DesignNo)
		}
	}
}
