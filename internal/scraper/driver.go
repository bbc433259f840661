package scraper

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"listingscout/logger"
	"listingscout/pkg/errors"
)

// ScraperConfig wires a Scraper. BaseURL, Strategy and Policy fall back
// to their defaults when left zero; Session is taken as given, so start
// from DefaultSessionConfig when overriding parts of it.
type ScraperConfig struct {
	BaseURL  string
	Session  SessionConfig
	Strategy Strategy
	Policy   FetchPolicy
}

// Scraper drives paginated scrapes of the marketplace search interface.
// One Scrape call owns one browser session for its whole duration;
// concurrent calls each get their own.
type Scraper struct {
	base     string
	baseURL  *url.URL
	session  SessionConfig
	strategy Strategy
	policy   FetchPolicy

	// fetchFunc overrides the rendered fetch; tests inject page
	// documents here instead of launching a browser
	fetchFunc func(ctx context.Context, query string, page int) (*goquery.Document, bool, error)
}

// NewScraper creates a scraper from the given configuration
func NewScraper(cfg ScraperConfig) (*Scraper, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, errors.NewConfiguration("invalid base URL", err)
	}

	strategy := cfg.Strategy
	if len(strategy.Containers) == 0 {
		strategy = DefaultStrategy()
	}
	policy := cfg.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultFetchPolicy()
	}

	return &Scraper{
		base:     base,
		baseURL:  parsed,
		session:  cfg.Session,
		strategy: strategy,
		policy:   policy,
	}, nil
}

// Scrape visits pages 1..req.Pages of the search results and returns
// everything it could extract. A page that fails to fetch is logged and
// skipped; the only error that crosses this boundary is a browser
// session that would not start.
func (s *Scraper) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResult, error) {
	if req.Pages < 1 {
		req.Pages = 1
	}
	log := logger.ForScraper(req.Query)

	fetch := s.fetchFunc
	if fetch == nil {
		sess, err := NewSession(s.session)
		if err != nil {
			return nil, err
		}
		defer sess.Close()

		fetch = func(ctx context.Context, query string, page int) (*goquery.Document, bool, error) {
			return s.fetchRendered(ctx, sess, query, page)
		}
	}

	result := &ScrapeResult{PagesRequested: req.Pages}
	for page := 1; page <= req.Pages; page++ {
		log.Info().
			Int("page", page).
			Str("url", SearchURL(s.base, req.Query, page)).
			Msg("Fetching page")

		doc, confirmed, err := fetch(ctx, req.Query, page)
		if err != nil {
			result.PagesFailed++
			log.Warn().Err(errors.NewPageFetch(req.Query, page, "page skipped", err)).Msg("Page fetch failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		result.PagesFetched++
		if !confirmed {
			result.Unconfirmed++
		}

		records := s.extractListings(doc, req.Query, log)
		if len(records) == 0 {
			log.Warn().Int("page", page).Msg("No listings found on page")
			continue
		}
		result.Listings = append(result.Listings, records...)

		log.Debug().
			Int("page", page).
			Int("extracted", len(records)).
			Int("total", len(result.Listings)).
			Msg("Listings accumulated")
	}

	log.Info().
		Int("listings", len(result.Listings)).
		Int("pages_fetched", result.PagesFetched).
		Int("pages_failed", result.PagesFailed).
		Int("unconfirmed", result.Unconfirmed).
		Msg("Scrape finished")

	return result, nil
}
