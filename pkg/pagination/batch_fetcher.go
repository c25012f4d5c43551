package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchConfig holds batch fetcher configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration

	// PerPage is the page size requested.
	PerPage int

	// MaxPages bounds the pages fetched, whether the count is reported by
	// the server or unknown. Zero means no cap.
	MaxPages int
}

// ErrPageCapReached is returned with the items fetched up to MaxPages.
var ErrPageCapReached = errors.New("page cap reached")

// DefaultBatchConfig returns a configuration that stays well inside the
// backend's rate limit.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		PerPage:        DefaultPerPage,
		MaxPages:       1000,
	}
}

// PageResult is the result of fetching a single page.
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// BatchFetcher fetches every page of a filtered collection.
type BatchFetcher[T any] struct {
	source PageSource[T]
	config BatchConfig
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](source PageSource[T], config BatchConfig) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.PerPage <= 0 {
		config.PerPage = DefaultPerPage
	}

	return &BatchFetcher[T]{
		source: source,
		config: config,
	}
}

// FetchAll returns every item matching filters in page order.
//
// Page 1 is fetched first. When it reports a page count (or a total the
// count can be derived from) the remaining pages are spread over the worker
// pool; otherwise pages are walked sequentially following has_more. On a
// page failure the items fetched so far are returned with the error.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, filters Filters) ([]T, error) {
	start := time.Now()

	first, err := bf.fetch(ctx, 1, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := bf.totalPages(first)
	if totalPages == 0 {
		return bf.walk(ctx, filters, first, start)
	}

	reported := totalPages
	if bf.config.MaxPages > 0 && totalPages > bf.config.MaxPages {
		log.Warn().
			Int("reported_pages", reported).
			Int("max_pages", bf.config.MaxPages).
			Msg("Page count above cap - fetching the first pages only")
		totalPages = bf.config.MaxPages
	}

	log.Info().
		Int("total_pages", totalPages).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	if totalPages == 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		if reported > 1 {
			return first.Items, fmt.Errorf("%w: fetched 1 of %d reported pages", ErrPageCapReached, reported)
		}
		return first.Items, nil
	}

	results := map[int][]T{1: first.Items}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int)
	pageResults := make(chan PageResult[T], bf.config.MaxConcurrency)

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(workerCtx, filters, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
				// Stop handing out pages; the export is incomplete anyway.
				cancel()
			}
			continue
		}
		results[result.PageNumber] = result.Items

		if len(results)%50 == 0 {
			log.Info().
				Int("fetched", len(results)).
				Int("total", totalPages).
				Float64("progress_pct", float64(len(results))/float64(totalPages)*100).
				Msg("Fetch progress")
		}
	}

	items := flatten(results)
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return items, fmt.Errorf("worker error (partial data: %d/%d pages): %w", len(results), totalPages, firstErr)
	}
	if totalPages < reported {
		return items, fmt.Errorf("%w: fetched %d of %d reported pages", ErrPageCapReached, totalPages, reported)
	}

	log.Info().
		Int("pages", len(results)).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// totalPages derives the page count from the first page, 0 when unknown.
func (bf *BatchFetcher[T]) totalPages(first Page[T]) int {
	if first.HasMore != nil && !*first.HasMore {
		return 1
	}
	switch {
	case first.Pages > 0:
		return first.Pages
	case first.Total > 0:
		return (first.Total + bf.config.PerPage - 1) / bf.config.PerPage
	default:
		return 0
	}
}

// walk follows next_page sequentially when the page count is unknown.
func (bf *BatchFetcher[T]) walk(ctx context.Context, filters Filters, first Page[T], start time.Time) ([]T, error) {
	items := append([]T(nil), first.Items...)
	page, current := first, 1

	for page.MoreAfter(current, bf.config.PerPage) {
		if bf.config.MaxPages > 0 && current >= bf.config.MaxPages {
			log.Warn().Int("max_pages", bf.config.MaxPages).Msg("Page cap reached")
			return items, fmt.Errorf("%w: stopped after %d pages", ErrPageCapReached, current)
		}
		next := page.Next(current)
		var err error
		page, err = bf.fetch(ctx, next, filters)
		if err != nil {
			return items, fmt.Errorf("page %d (partial data: %d pages): %w", next, current, err)
		}
		current = next
		items = append(items, page.Items...)
	}

	log.Info().
		Int("pages", current).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete (sequential)")
	return items, nil
}

func (bf *BatchFetcher[T]) fetch(ctx context.Context, pageNum int, filters Filters) (Page[T], error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	page, err := bf.source.FetchPage(pageCtx, PageRequest{
		Page:    pageNum,
		PerPage: bf.config.PerPage,
		Filters: filters.Clone(),
	})
	if err != nil {
		batchPagesTotal.WithLabelValues("error").Inc()
		return page, err
	}
	batchPagesTotal.WithLabelValues("ok").Inc()
	return page, nil
}

// worker processes pages from the queue.
func (bf *BatchFetcher[T]) worker(ctx context.Context, filters Filters, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		page, err := bf.fetch(ctx, pageNum, filters)
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
		}

		// FetchAll drains results until every worker is done.
		results <- PageResult[T]{PageNumber: pageNum, Items: page.Items, Error: err}
		if err != nil {
			return
		}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

// flatten concatenates pages in page order, skipping gaps.
func flatten[T any](pages map[int][]T) []T {
	nums := make([]int, 0, len(pages))
	n := 0
	for num, items := range pages {
		nums = append(nums, num)
		n += len(items)
	}
	sort.Ints(nums)

	out := make([]T, 0, n)
	for _, num := range nums {
		out = append(out, pages[num]...)
	}
	return out
}
