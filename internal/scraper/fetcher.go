package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listingscout/helpers"
)

// DefaultBaseURL is the marketplace the default strategy targets
const DefaultBaseURL = "https://www.olx.in"

// FetchPolicy bounds every wait and retry in the fetch path. All knobs
// are explicit; nothing here hides in package state.
type FetchPolicy struct {
	// MaxAttempts bounds fetch attempts per page in the HTTP pipeline.
	// The rendered path does not retry.
	MaxAttempts int
	// PreDelayMin/Max bound the randomized pause before every HTTP
	// attempt, including the first.
	PreDelayMin time.Duration
	PreDelayMax time.Duration
	// RetryDelayMin/Max bound the randomized pause after a failed
	// HTTP attempt.
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	// PageWait is the fixed settle delay after navigation, before the
	// marker poll.
	PageWait time.Duration
	// MarkerTimeout bounds the wait for a listing marker to render.
	MarkerTimeout time.Duration
	// RequestTimeout bounds one plain HTTP request.
	RequestTimeout time.Duration
	// PageDelay is the pause between result pages in the HTTP pipeline.
	PageDelay time.Duration
}

// DefaultFetchPolicy returns the wait and retry bounds used unless the
// caller overrides them
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{
		MaxAttempts:    3,
		PreDelayMin:    1 * time.Second,
		PreDelayMax:    2500 * time.Millisecond,
		RetryDelayMin:  2 * time.Second,
		RetryDelayMax:  5 * time.Second,
		PageWait:       3 * time.Second,
		MarkerTimeout:  10 * time.Second,
		RequestTimeout: 15 * time.Second,
		PageDelay:      1 * time.Second,
	}
}

// SearchURL builds the search result URL for one page of a query
func SearchURL(baseURL, query string, page int) string {
	return fmt.Sprintf("%s/items/q-%s?page=%d", strings.TrimRight(baseURL, "/"), helpers.Slugify(query), page)
}

// fetchRendered renders one search page in the session and parses it.
// The confirmed flag reports whether a listing marker appeared before
// the marker deadline.
func (s *Scraper) fetchRendered(ctx context.Context, sess *Session, query string, page int) (*goquery.Document, bool, error) {
	pageURL := SearchURL(s.base, query, page)

	html, confirmed, err := sess.RenderHTML(ctx, pageURL, s.policy.PageWait, s.strategy.markers(), s.policy.MarkerTimeout)
	if err != nil {
		return nil, false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, confirmed, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, confirmed, nil
}

// randDelay returns a uniform duration in [min, max)
func randDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
