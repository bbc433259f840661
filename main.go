package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"listingscout/config"
	"listingscout/helpers"
	"listingscout/internal/scraper"
	"listingscout/logger"
	"listingscout/pkg/errors"
	"listingscout/services/cache"
	"listingscout/services/publisher"
	"listingscout/services/store"
	"listingscout/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var flags runFlags
	flag.StringVar(&flags.query, "query", "", "search term to scrape once; empty runs the watch worker")
	flag.IntVar(&flags.pages, "pages", 1, "result pages to visit")
	flag.IntVar(&flags.waitSeconds, "wait", int(cfg.PageWait/time.Second), "seconds to let a page settle before extraction")
	flag.BoolVar(&flags.headless, "headless", cfg.Headless, "run the browser headless")
	flag.BoolVar(&flags.fallback, "fallback", false, "use the plain-HTTP pipeline instead of the browser")
	flag.Float64Var(&flags.reference, "reference", 0, "reference price for the comparables report")
	flag.Float64Var(&flags.tolerance, "tolerance", cfg.TolerancePercent, "tolerance band around the reference price, in percent")
	flag.StringVar(&flags.out, "out", "", "write the report to this file instead of stdout")
	flag.Parse()

	if flags.query != "" {
		runOnce(cfg, flags)
		return
	}

	if len(cfg.WatchQueries) == 0 {
		log.Fatal().Msg("Nothing to do: pass -query or set WATCH_QUERIES")
	}
	runWorker(cfg, flags)
}

// runFlags carries the command line switches
type runFlags struct {
	query       string
	pages       int
	waitSeconds int
	headless    bool
	fallback    bool
	reference   float64
	tolerance   float64
	out         string
}

// comparable is one ranked listing with its distance from the reference
type comparable struct {
	scraper.ListingRecord
	DiffPercent float64 `json:"diff_percent"`
}

// report is the one-shot output document
type report struct {
	Query            string                `json:"query"`
	GeneratedAt      time.Time             `json:"generated_at"`
	FromCache        bool                  `json:"from_cache"`
	Result           *scraper.ScrapeResult `json:"result"`
	Summary          scraper.Summary       `json:"summary"`
	ReferencePrice   float64               `json:"reference_price,omitempty"`
	TolerancePercent float64               `json:"tolerance_percent,omitempty"`
	Comparables      []comparable          `json:"comparables,omitempty"`
}

// runOnce scrapes one query and emits a report
func runOnce(cfg *config.Config, flags runFlags) {
	log := logger.Default

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	searcher, err := newSearcher(cfg, flags.headless, flags.waitSeconds, flags.fallback)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scraper")
	}

	results := resultCache(cfg)
	var result *scraper.ScrapeResult
	fromCache := false
	if results != nil {
		if cached, ok := results.Get(flags.query, flags.pages); ok {
			result = cached
			fromCache = true
			log.Info().Str("query", flags.query).Msg("Result served from cache")
		}
	}

	if result == nil {
		result, err = searcher.Scrape(ctx, scraper.ScrapeRequest{Query: flags.query, Pages: flags.pages})
		if err != nil {
			log.Fatal().Err(err).Msg("Scrape failed")
		}
		if results != nil {
			if err := results.Set(flags.query, flags.pages, result); err != nil {
				log.Warn().Err(err).Msg("Failed to cache result")
			}
		}
	}

	rep := buildReport(flags, result, fromCache)

	if flags.out != "" {
		if err := helpers.WriteJSON(flags.out, rep); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
		log.Info().
			Str("file", flags.out).
			Int("listings", len(result.Listings)).
			Msg("Report written")
		return
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode report")
	}
	fmt.Println(string(data))
}

// buildReport assembles the output document, attaching the comparables
// view when a reference price was given
func buildReport(flags runFlags, result *scraper.ScrapeResult, fromCache bool) report {
	rep := report{
		Query:       flags.query,
		GeneratedAt: time.Now().UTC(),
		FromCache:   fromCache,
		Result:      result,
		Summary:     scraper.Summarize(result.Listings),
	}

	if flags.reference > 0 {
		rep.ReferencePrice = flags.reference
		rep.TolerancePercent = flags.tolerance
		for _, l := range scraper.Comparables(result.Listings, flags.reference, flags.tolerance) {
			rep.Comparables = append(rep.Comparables, comparable{
				ListingRecord: l,
				DiffPercent:   scraper.DiffPercent(*l.Price, flags.reference),
			})
		}
	}
	return rep
}

// runWorker watches the configured queries until shut down
func runWorker(cfg *config.Config, flags runFlags) {
	log := logger.Default

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	searcher, err := newSearcher(cfg, cfg.Headless, flags.waitSeconds, flags.fallback)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scraper")
	}

	w := worker.NewWorker(worker.Options{
		Searcher:  searcher,
		Publisher: services.Publisher,
		Store:     services.Store,
		Cache:     services.Cache,
		Queries:   cfg.WatchQueries,
		Pages:     cfg.WatchPages,
		Interval:  cfg.ScrapeInterval,
		SeenTTL:   cfg.SeenTTL,
	})

	workerDone := make(chan struct{})
	go func() {
		log.Info().
			Int("queries", len(cfg.WatchQueries)).
			Dur("interval", cfg.ScrapeInterval).
			Msg("Starting listing watch worker")
		w.Start(ctx)
		close(workerDone)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	log.Info().Msg("Shutting down gracefully...")
}

// newSearcher builds the rendered scraper, or the plain-HTTP pipeline
// when fallback is requested
func newSearcher(cfg *config.Config, headless bool, waitSeconds int, fallback bool) (worker.Searcher, error) {
	session := scraper.DefaultSessionConfig()
	session.Headless = headless
	session.Stealth = cfg.Stealth
	session.BrowserBin = cfg.BrowserBin

	policy := scraper.DefaultFetchPolicy()
	if waitSeconds > 0 {
		policy.PageWait = time.Duration(waitSeconds) * time.Second
	}

	scraperCfg := scraper.ScraperConfig{
		BaseURL: cfg.BaseURL,
		Session: session,
		Policy:  policy,
	}

	if fallback {
		return scraper.NewHTTPPipeline(scraperCfg)
	}
	return scraper.NewScraper(scraperCfg)
}

// resultCache returns the memcache backed result cache, or nil when the
// server is unreachable
func resultCache(cfg *config.Config) *cache.ResultCache {
	if cfg.MemcacheAddr == "" {
		return nil
	}
	mc := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		logger.Default.Debug().Err(err).Msg("Memcache unreachable, result caching disabled")
		return nil
	}
	return cache.NewResultCache(mc, cfg.ResultTTL)
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     store.Store
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Dedup cache: memcache when reachable, process memory otherwise
	mc := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		logger.Warn("Memcache unreachable at %s, using in-memory dedup", cfg.MemcacheAddr)
		services.Cache = cache.NewMemoryCache()
	} else {
		services.Cache = mc
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStreamPrefix,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		return nil, errors.NewPublisher("redis unreachable at "+cfg.RedisAddr, err)
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStreamPrefix)

	// Listing store is optional; an empty DSN disables it
	if cfg.PostgresDSN != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		services.Store = pgStore
		logger.Info("Connected to Postgres")
	}

	return services, nil
}
