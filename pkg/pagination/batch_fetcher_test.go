package pagination

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher[int](pagedSource(0), BatchConfig{})

	if bf.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", bf.config.Timeout)
	}
	if bf.config.PerPage != DefaultPerPage {
		t.Errorf("PerPage = %d, want %d", bf.config.PerPage, DefaultPerPage)
	}
}

func TestFetchAll_ParallelKeepsPageOrder(t *testing.T) {
	const total = 470
	var inFlight, maxInFlight atomic.Int32
	source := &fakeSource{fn: func(ctx context.Context, req PageRequest) (Page[int], error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return pagedSource(total).fn(ctx, req)
	}}

	cfg := DefaultBatchConfig()
	cfg.MaxConcurrency = 3
	bf := NewBatchFetcher[int](source, cfg)

	items, err := bf.FetchAll(context.Background(), Filters{"category": "Rings"})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != total {
		t.Fatalf("len(items) = %d, want %d", len(items), total)
	}
	for i, item := range items {
		if item != i {
			t.Fatalf("items[%d] = %d, want page order", i, item)
		}
	}
	if got := source.calls.Load(); got != 10 {
		t.Errorf("requests = %d, want 10", got)
	}
	if got := maxInFlight.Load(); got > 3 {
		t.Errorf("max in flight = %d, want <= 3", got)
	}
	for _, req := range source.Requests() {
		if req.Filters["category"] != "Rings" {
			t.Errorf("request %d lost filters: %v", req.Page, req.Filters)
		}
	}
}

func TestFetchAll_SinglePage(t *testing.T) {
	source := pagedSource(12)
	items, err := NewBatchFetcher[int](source, DefaultBatchConfig()).FetchAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 12 {
		t.Errorf("len(items) = %d, want 12", len(items))
	}
	if got := source.calls.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchAll_SequentialWithoutPageCount(t *testing.T) {
	// has_more and next_page only, no total.
	source := &fakeSource{fn: func(_ context.Context, req PageRequest) (Page[int], error) {
		more := req.Page < 3
		page := Page[int]{Items: seq((req.Page-1)*10, 10), HasMore: boolPtr(more)}
		if more {
			page.NextPage = req.Page + 1
		}
		return page, nil
	}}

	cfg := DefaultBatchConfig()
	cfg.PerPage = 10
	items, err := NewBatchFetcher[int](source, cfg).FetchAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 30 || items[29] != 29 {
		t.Errorf("items = %v, want 0..29", items)
	}
}

func TestFetchAll_FirstPageError(t *testing.T) {
	wantErr := errors.New("backend down")
	source := &fakeSource{fn: func(context.Context, PageRequest) (Page[int], error) {
		return Page[int]{}, wantErr
	}}

	items, err := NewBatchFetcher[int](source, DefaultBatchConfig()).FetchAll(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("FetchAll() error = %v, want %v", err, wantErr)
	}
	if items != nil {
		t.Errorf("items = %v, want nil", items)
	}
}

func TestFetchAll_PartialOnPageError(t *testing.T) {
	wantErr := errors.New("page 4 exploded")
	source := &fakeSource{fn: func(ctx context.Context, req PageRequest) (Page[int], error) {
		if req.Page == 4 {
			return Page[int]{}, wantErr
		}
		return pagedSource(500).fn(ctx, req)
	}}

	cfg := DefaultBatchConfig()
	cfg.MaxConcurrency = 1
	items, err := NewBatchFetcher[int](source, cfg).FetchAll(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("FetchAll() error = %v, want %v", err, wantErr)
	}
	// One worker fetches pages in order and stops at page 4.
	if len(items) != 150 {
		t.Errorf("len(items) = %d, want 150 (pages 1-3)", len(items))
	}
}

func TestFetchAll_CapsReportedPageCount(t *testing.T) {
	src := &fakeSource{fn: func(_ context.Context, req PageRequest) (Page[int], error) {
		return Page[int]{Items: []int{req.Page}, Pages: 1 << 40}, nil
	}}
	cfg := DefaultBatchConfig()
	cfg.MaxConcurrency = 2
	cfg.MaxPages = 5

	items, err := NewBatchFetcher[int](src, cfg).FetchAll(context.Background(), nil)
	if !errors.Is(err, ErrPageCapReached) {
		t.Fatalf("FetchAll() error = %v, want ErrPageCapReached", err)
	}
	if len(items) != 5 {
		t.Errorf("len(items) = %d, want 5", len(items))
	}
	for i, v := range items {
		if v != i+1 {
			t.Fatalf("items[%d] = %d, want %d", i, v, i+1)
		}
	}
	if n := src.calls.Load(); n != 5 {
		t.Errorf("requests = %d, want 5", n)
	}
}

func TestFetchAll_CapsSequentialWalk(t *testing.T) {
	src := &fakeSource{fn: func(_ context.Context, req PageRequest) (Page[int], error) {
		return Page[int]{Items: []int{req.Page}, HasMore: boolPtr(true), NextPage: req.Page + 1}, nil
	}}
	cfg := DefaultBatchConfig()
	cfg.MaxPages = 3

	items, err := NewBatchFetcher[int](src, cfg).FetchAll(context.Background(), nil)
	if !errors.Is(err, ErrPageCapReached) {
		t.Fatalf("FetchAll() error = %v, want ErrPageCapReached", err)
	}
	if len(items) != 3 {
		t.Errorf("len(items) = %d, want 3", len(items))
	}
	if n := src.calls.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}
