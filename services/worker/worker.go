package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"listingscout/internal/scraper"
	"listingscout/logger"
	"listingscout/services/cache"
	"listingscout/services/publisher"
	"listingscout/services/store"
)

// Searcher runs one paginated scrape. Both the rendered scraper and the
// plain-HTTP pipeline satisfy it.
type Searcher interface {
	Scrape(ctx context.Context, req scraper.ScrapeRequest) (*scraper.ScrapeResult, error)
}

// Options wires a Worker. Publisher, Store and Cache may be nil; the
// worker then skips publishing, persistence or dedup respectively.
type Options struct {
	Searcher  Searcher
	Publisher publisher.Publisher
	Store     store.Store
	Cache     cache.CacheService

	// Queries are the watched search terms; each is scraped every sweep
	Queries []string
	// Pages is how many result pages to visit per query
	Pages int
	// Interval is the pause between sweeps
	Interval time.Duration
	// SeenTTL is how long a listing URL stays deduplicated
	SeenTTL time.Duration
}

// Worker watches a set of queries: every interval it scrapes each one,
// publishes the listings it has not seen before and persists them.
type Worker struct {
	searcher  Searcher
	publisher publisher.Publisher
	store     store.Store
	cache     cache.CacheService
	queries   []string
	pages     int
	interval  time.Duration
	seenTTL   time.Duration
}

// NewWorker creates a new worker
func NewWorker(opts Options) *Worker {
	pages := opts.Pages
	if pages < 1 {
		pages = 1
	}
	return &Worker{
		searcher:  opts.Searcher,
		publisher: opts.Publisher,
		store:     opts.Store,
		cache:     opts.Cache,
		queries:   opts.Queries,
		pages:     pages,
		interval:  opts.Interval,
		seenTTL:   opts.SeenTTL,
	}
}

// Start runs sweeps until the context is cancelled. The first sweep
// starts immediately.
func (w *Worker) Start(ctx context.Context) {
	log := logger.ForWorker()
	for {
		start := time.Now()
		w.Sweep(ctx)
		log.Info().Dur("elapsed", time.Since(start)).Msg("Sweep finished")

		select {
		case <-ctx.Done():
			log.Info().Msg("Worker stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

// Sweep scrapes every watched query in parallel, then trims the
// streams. Start calls it on the interval; one-off callers can run a
// single pass directly.
func (w *Worker) Sweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, query := range w.queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			w.scrapeAndPublish(ctx, query)
		}(query)
	}
	wg.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(ctx); err != nil {
			logger.ForWorker().Error().Err(err).Msg("Stream trimming failed")
		}
	}
}

// scrapeAndPublish scrapes one query and fans out the listings that
// were not seen before
func (w *Worker) scrapeAndPublish(ctx context.Context, query string) {
	log := logger.ForWorker().WithField("query", query)

	result, err := w.searcher.Scrape(ctx, scraper.ScrapeRequest{Query: query, Pages: w.pages})
	if err != nil {
		log.Error().Err(err).Msg("Scrape failed")
		return
	}

	fresh := make([]scraper.ListingRecord, 0, len(result.Listings))
	for _, listing := range result.Listings {
		if listing.URL == nil {
			// without a URL there is no identity to dedup or store by
			continue
		}
		if w.seen(*listing.URL) {
			continue
		}
		fresh = append(fresh, listing)
	}

	for _, listing := range fresh {
		payload, err := json.Marshal(listing)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode listing")
			continue
		}
		if w.publisher != nil {
			if err := w.publisher.Publish(ctx, query, payload); err != nil {
				log.Error().Err(err).Msg("Publish failed")
			}
		}
	}

	if w.store != nil && len(fresh) > 0 {
		inserted, err := w.store.SaveListings(ctx, query, fresh)
		if err != nil {
			log.Error().Err(err).Msg("Persist failed")
		} else if inserted > 0 {
			log.Debug().Int("inserted", inserted).Msg("Listings persisted")
		}
	}

	log.Info().
		Int("listings", len(result.Listings)).
		Int("fresh", len(fresh)).
		Int("pages_failed", result.PagesFailed).
		Msg("Query swept")
}

// seen marks a URL as seen and reports whether it already was
func (w *Worker) seen(url string) bool {
	if w.cache == nil {
		return false
	}
	key := cache.SeenKey(url)
	if _, err := w.cache.Get(key); err == nil {
		return true
	}
	if err := w.cache.Set(key, []byte("1"), w.seenTTL); err != nil {
		logger.ForWorker().Warn().Err(err).Msg("Failed to mark listing as seen")
	}
	return false
}
