package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listingscout/helpers"
	"listingscout/logger"
	"listingscout/pkg/errors"
)

// heuristicPattern locates listing containers on sites the strategy
// table knows nothing about. ClassRe, when set, filters the matched
// elements by their class attribute.
type heuristicPattern struct {
	name     string
	selector string
	classRe  *regexp.Regexp
}

var heuristicPatterns = []heuristicPattern{
	{name: "li-listing-class", selector: "li", classRe: regexp.MustCompile(`(?i)listing|result|item`)},
	{name: "div-listing-class", selector: "div", classRe: regexp.MustCompile(`(?i)listing|result|card|EIR5N`)},
	{name: "article", selector: "article"},
	{name: "item-box", selector: `div[data-aut-id="itemBox"]`},
}

var (
	priceHintRe = regexp.MustCompile(`₹|\bINR\b|Rs\.|rs\.|\d{2,}`)
	quantityRe  = regexp.MustCompile(`(?i)\d[\d,]*\s*kms?`)
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// titleTags are probed in order for a heuristic title
var titleTags = []string{"h2", "h3", "h1", "a", "span", "div"}

// HTTPPipeline is the non-rendering fallback scraper: plain fingerprinted
// GETs plus structural heuristics instead of a browser and a selector
// table. Lower fidelity than Scraper, but it works without Chromium and
// on sites the strategy table has never seen. Only priced rows survive.
type HTTPPipeline struct {
	base     string
	baseURL  *url.URL
	strategy Strategy
	policy   FetchPolicy

	// fetchFunc overrides the HTTP fetch; tests inject page bodies here
	fetchFunc func(ctx context.Context, pageURL string) ([]byte, error)
}

// NewHTTPPipeline creates the fallback pipeline. The Session part of the
// configuration is ignored; there is no browser here.
func NewHTTPPipeline(cfg ScraperConfig) (*HTTPPipeline, error) {
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

	return &HTTPPipeline{
		base:      base,
		baseURL:   parsed,
		strategy:  strategy,
		policy:    policy,
		fetchFunc: helpers.FetchWithRandomHeaders,
	}, nil
}

// Scrape fetches pages 1..req.Pages over plain HTTP and extracts rows
// heuristically. Pages that exhaust their retries are skipped. Rows
// without a price are dropped at the end; everything returned is priced.
func (p *HTTPPipeline) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResult, error) {
	if req.Pages < 1 {
		req.Pages = 1
	}
	log := logger.ForScraper(req.Query)

	result := &ScrapeResult{PagesRequested: req.Pages}
	for page := 1; page <= req.Pages; page++ {
		pageURL := SearchURL(p.base, req.Query, page)
		log.Info().Int("page", page).Str("url", pageURL).Msg("Fetching page over plain HTTP")

		body, err := p.fetchWithRetry(ctx, pageURL, log)
		if err != nil {
			result.PagesFailed++
			log.Warn().Err(errors.NewPageFetch(req.Query, page, "page skipped", err)).Msg("Page fetch failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			result.PagesFailed++
			log.Warn().Err(errors.NewPageFetch(req.Query, page, "unparseable page skipped", err)).Msg("Page parse failed")
			continue
		}
		result.PagesFetched++

		rows := p.extractRows(doc, req.Query, log)
		result.Listings = append(result.Listings, rows...)

		if page < req.Pages {
			if err := sleepCtx(ctx, p.policy.PageDelay); err != nil {
				break
			}
		}
	}

	// Rows without a price carry too little signal to rank; drop them.
	var priced []ListingRecord
	for _, l := range result.Listings {
		if l.Price != nil {
			priced = append(priced, l)
		}
	}
	result.Listings = priced

	log.Info().
		Int("listings", len(result.Listings)).
		Int("pages_fetched", result.PagesFetched).
		Int("pages_failed", result.PagesFailed).
		Msg("Fallback scrape finished")

	return result, nil
}

// fetchWithRetry runs one page fetch under the policy: a randomized
// pre-request pause before every attempt, acceptance only when the body
// looks like HTML, a longer randomized pause between failures, and a
// hard stop after MaxAttempts.
func (p *HTTPPipeline) fetchWithRetry(ctx context.Context, pageURL string, log *logger.Logger) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if err := sleepCtx(ctx, randDelay(p.policy.PreDelayMin, p.policy.PreDelayMax)); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, p.policy.RequestTimeout)
		body, err := p.fetchFunc(reqCtx, pageURL)
		cancel()

		if err == nil && !bytes.Contains(bytes.ToLower(body), []byte("<html")) {
			err = fmt.Errorf("non-HTML response received")
		}
		if err == nil {
			return body, nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.policy.MaxAttempts).
			Str("url", pageURL).
			Msg("Fetch attempt failed")

		if attempt < p.policy.MaxAttempts {
			if err := sleepCtx(ctx, randDelay(p.policy.RetryDelayMin, p.policy.RetryDelayMax)); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// extractRows walks the heuristic container patterns, falling back to
// the capped anchor sweep, and extracts one row per container.
func (p *HTTPPipeline) extractRows(doc *goquery.Document, query string, log *logger.Logger) []ListingRecord {
	containers, matched := heuristicContainers(doc)
	if containers == nil {
		containers = p.anchorCandidates(doc)
		matched = "anchor-sweep"
	}

	log.Debug().
		Str("pattern", matched).
		Int("containers", containers.Length()).
		Msg("Containers resolved heuristically")

	var rows []ListingRecord
	containers.Each(func(i int, sel *goquery.Selection) {
		if row := p.extractRow(sel, query, log); row != nil {
			rows = append(rows, *row)
		}
	})
	return rows
}

// heuristicContainers returns the matches of the first pattern that hits
func heuristicContainers(doc *goquery.Document) (*goquery.Selection, string) {
	for _, pat := range heuristicPatterns {
		found := doc.Find(pat.selector)
		if pat.classRe != nil {
			re := pat.classRe
			found = found.FilterFunction(func(i int, s *goquery.Selection) bool {
				class, _ := s.Attr("class")
				return re.MatchString(class)
			})
		}
		if found.Length() > 0 {
			return found, pat.name
		}
	}
	return nil, ""
}

// anchorCandidates selects the short-texted anchors used when no
// container pattern matched, bounded by the strategy caps.
func (p *HTTPPipeline) anchorCandidates(doc *goquery.Document) *goquery.Selection {
	found := doc.Find("a[href]").FilterFunction(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		return text != "" && utf8.RuneCountInString(text) < p.strategy.AnchorTextMax
	})
	if found.Length() > p.strategy.AnchorFallbackCap {
		found = found.Slice(0, p.strategy.AnchorFallbackCap)
	}
	return found
}

// extractRow turns one heuristic container into a row. Price and
// quantity come from the first text node whose digits normalize to a
// non-zero value; the title search walks heading-ish tags before
// falling back to a snippet of the container text.
func (p *HTTPPipeline) extractRow(sel *goquery.Selection, query string, log *logger.Logger) (row *ListingRecord) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewContainerExtraction(query, "container skipped", nil)
			log.Debug().Interface("panic", r).Msg(err.Message)
			row = nil
		}
	}()

	spaced := textSpaced(sel)
	nodes := rawTextNodes(sel)

	var price *int64
	for _, node := range nodes {
		if !priceHintRe.MatchString(node) {
			continue
		}
		if v := NormalizePrice(node); v != nil && *v != 0 {
			price = v
			break
		}
	}

	var quantity *int64
	for _, node := range nodes {
		if !quantityRe.MatchString(node) {
			continue
		}
		if v := NormalizeQuantity(node); v != nil && *v != 0 {
			quantity = v
			break
		}
	}

	var title *string
	for _, tag := range titleTags {
		found := sel.Find(tag).First()
		if found.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(found.Text())
		if utf8.RuneCountInString(text) > 3 {
			title = &text
			break
		}
	}
	if title == nil && spaced != "" {
		title = strPtr(helpers.Snippet(spaced, 120))
	}

	var year *int
	if match := yearRe.FindString(spaced); match != "" {
		if v, err := strconv.Atoi(match); err == nil {
			year = intPtr(v)
		}
	}

	var link *string
	if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
		resolved := resolveAgainst(p.baseURL, strings.TrimSpace(href))
		link = &resolved
	}

	return &ListingRecord{
		Title:    title,
		Price:    price,
		URL:      link,
		Location: DefaultLocation,
		Year:     year,
		Quantity: quantity,
		RawText:  spaced,
	}
}

// resolveAgainst makes a relative href absolute against base
func resolveAgainst(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}
	return base.ResolveReference(parsed).String()
}

// textSpaced renders a selection's text nodes as one space-joined line
func textSpaced(sel *goquery.Selection) string {
	var pieces []string
	for _, node := range sel.Nodes {
		collectTextLines(node, &pieces)
	}
	return strings.Join(pieces, " ")
}

// rawTextNodes returns the untrimmed text nodes of a selection in
// document order, for regex probing
func rawTextNodes(sel *goquery.Selection) []string {
	var nodes []string
	for _, node := range sel.Nodes {
		collectRawText(node, &nodes)
	}
	return nodes
}

func collectRawText(n *html.Node, nodes *[]string) {
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) != "" {
			*nodes = append(*nodes, n.Data)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRawText(c, nodes)
	}
}
