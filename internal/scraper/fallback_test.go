package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"listingscout/logger"
)

// fastPolicy keeps retry pauses out of test runtime
func fastPolicy() FetchPolicy {
	p := DefaultFetchPolicy()
	p.PreDelayMin = time.Microsecond
	p.PreDelayMax = 2 * time.Microsecond
	p.RetryDelayMin = time.Microsecond
	p.RetryDelayMax = 2 * time.Microsecond
	p.PageDelay = time.Microsecond
	return p
}

func newTestPipeline(t *testing.T) *HTTPPipeline {
	t.Helper()
	p, err := NewHTTPPipeline(ScraperConfig{Policy: fastPolicy()})
	assert.NoError(t, err)
	return p
}

func TestFetchWithRetryStopsAfterMaxAttempts(t *testing.T) {
	p := newTestPipeline(t)
	calls := 0
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		calls++
		return nil, fmt.Errorf("connection refused")
	}

	_, err := p.fetchWithRetry(context.Background(), "https://www.olx.in/items/q-swift?page=1", logger.ForScraper("swift"))

	assert.Error(t, err, "Exhausted retries should surface the last error")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, p.policy.MaxAttempts, calls, "Should stop exactly at the attempt limit")
}

func TestFetchWithRetrySucceedsMidway(t *testing.T) {
	p := newTestPipeline(t)
	calls := 0
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("timeout")
		}
		return []byte("<html><body>ok</body></html>"), nil
	}

	body, err := p.fetchWithRetry(context.Background(), "https://www.olx.in/items/q-swift?page=1", logger.ForScraper("swift"))

	assert.NoError(t, err, "A later attempt should rescue the fetch")
	assert.Equal(t, 2, calls, "Should stop retrying once a fetch succeeds")
	assert.Contains(t, string(body), "ok")
}

func TestFetchWithRetryRejectsNonHTML(t *testing.T) {
	p := newTestPipeline(t)
	calls := 0
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		calls++
		return []byte(`{"blocked":true}`), nil
	}

	_, err := p.fetchWithRetry(context.Background(), "https://www.olx.in/items/q-swift?page=1", logger.ForScraper("swift"))

	assert.Error(t, err, "Bodies without an html tag should be rejected")
	assert.Contains(t, err.Error(), "non-HTML")
	assert.Equal(t, p.policy.MaxAttempts, calls, "Non-HTML bodies should burn attempts like failures")
}

func TestFetchWithRetryAcceptsUppercaseHTML(t *testing.T) {
	p := newTestPipeline(t)
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		return []byte("<HTML><BODY>legacy page</BODY></HTML>"), nil
	}

	body, err := p.fetchWithRetry(context.Background(), "https://www.olx.in/items/q-swift?page=1", logger.ForScraper("swift"))

	assert.NoError(t, err, "HTML detection should be case-insensitive")
	assert.NotEmpty(t, body)
}

func TestPipelineScrapeDropsUnpricedRows(t *testing.T) {
	p := newTestPipeline(t)
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		return []byte(`<html><body>
			<li class="result-row"><h3>Washing machine</h3><span>₹ 52,000</span></li>
			<li class="result-row"><h3>Free old newspapers</h3></li>
		</body></html>`), nil
	}

	result, err := p.Scrape(context.Background(), ScrapeRequest{Query: "washing machine", Pages: 1})

	assert.NoError(t, err)
	assert.Len(t, result.Listings, 1, "Rows without a price should be dropped")
	assert.Equal(t, "Washing machine", *result.Listings[0].Title)
	assert.Equal(t, int64(52000), *result.Listings[0].Price)
	assert.Equal(t, 1, result.PagesFetched)
}

func TestPipelineScrapeSkipsExhaustedPages(t *testing.T) {
	p := newTestPipeline(t)
	p.fetchFunc = func(ctx context.Context, pageURL string) ([]byte, error) {
		if strings.Contains(pageURL, "page=1") {
			return nil, fmt.Errorf("blocked")
		}
		return []byte(`<html><body>
			<li class="listing-tile"><h3>Office chair</h3><span>₹ 4,500</span></li>
		</body></html>`), nil
	}

	result, err := p.Scrape(context.Background(), ScrapeRequest{Query: "chair", Pages: 2})

	assert.NoError(t, err, "A page that exhausts retries should not fail the scrape")
	assert.Equal(t, 1, result.PagesFailed)
	assert.Equal(t, 1, result.PagesFetched)
	assert.Len(t, result.Listings, 1, "Surviving pages should still contribute rows")
}

func TestHeuristicContainerPrecedence(t *testing.T) {
	testCases := []struct {
		name        string
		html        string
		wantPattern string
		wantCount   int
	}{
		{
			name: "listing class on li wins",
			html: `<li class="search-RESULT">a</li><li class="search-RESULT">b</li>
				<div class="card">c</div>`,
			wantPattern: "li-listing-class",
			wantCount:   2,
		},
		{
			name:        "div card class when no matching li",
			html:        `<li class="nav-entry">menu</li><div class="offer-Card">a</div>`,
			wantPattern: "div-listing-class",
			wantCount:   1,
		},
		{
			name:        "article fallback",
			html:        `<article>a</article><article>b</article><article>c</article>`,
			wantPattern: "article",
			wantCount:   3,
		},
		{
			name:        "item box attribute",
			html:        `<div data-aut-id="itemBox">a</div>`,
			wantPattern: "item-box",
			wantCount:   1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := docFromHTML(t, tc.html)
			sel, pattern := heuristicContainers(doc)

			assert.Equal(t, tc.wantPattern, pattern, "First matching pattern should win")
			assert.NotNil(t, sel)
			assert.Equal(t, tc.wantCount, sel.Length())
		})
	}
}

func TestHeuristicContainersMiss(t *testing.T) {
	doc := docFromHTML(t, `<div class="hero"><p>nothing listing-shaped here</p></div>`)
	sel, pattern := heuristicContainers(doc)

	assert.Nil(t, sel, "No pattern should match plain page furniture")
	assert.Empty(t, pattern)
}

func TestAnchorCandidatesCapped(t *testing.T) {
	st := DefaultStrategy()
	st.AnchorFallbackCap = 3
	p, err := NewHTTPPipeline(ScraperConfig{Strategy: st, Policy: fastPolicy()})
	assert.NoError(t, err)

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, `<a href="/item/%d">Listing %d</a>`, i, i)
	}
	b.WriteString("</body></html>")

	doc := docFromHTML(t, b.String())
	sel := p.anchorCandidates(doc)

	assert.Equal(t, 3, sel.Length(), "Candidates should be cut at the cap in document order")
}

func TestExtractRowFields(t *testing.T) {
	p := newTestPipeline(t)
	doc := docFromHTML(t, `<li class="item-cell" id="row">
		<h3>Royal Enfield Classic</h3>
		<span>₹ 1,25,000</span>
		<span>23,000 kms</span>
		<span>2019 model</span>
	</li>`)

	row := p.extractRow(doc.Find("#row"), "enfield", logger.ForScraper("enfield"))

	assert.NotNil(t, row)
	assert.Equal(t, "Royal Enfield Classic", *row.Title, "Heading tags should be probed for a title")
	assert.Equal(t, int64(125000), *row.Price, "Price should come from the first priced text node")
	assert.Equal(t, int64(23000), *row.Quantity, "Odometer reading should normalize from the kms node")
	assert.Equal(t, 2019, *row.Year, "Year should be picked out of the row text")
	assert.Equal(t, DefaultLocation, row.Location, "Heuristic rows carry the location placeholder")
}

func TestExtractRowSnippetTitle(t *testing.T) {
	p := newTestPipeline(t)
	longRow := "Vintage teak display cabinet in excellent condition with original brass fittings, " +
		"glass shelving and lockable doors, priced at 15000 only, pickup from the seller, " +
		"serious buyers please"
	doc := docFromHTML(t, fmt.Sprintf(`<li class="listing" id="row">%s</li>`, longRow))

	row := p.extractRow(doc.Find("#row"), "cabinet", logger.ForScraper("cabinet"))

	assert.NotNil(t, row)
	assert.Equal(t, int64(15000), *row.Price)
	assert.True(t, strings.HasSuffix(*row.Title, "..."), "Fallback title should be a snippet")
	assert.Equal(t, 123, utf8.RuneCountInString(*row.Title), "Snippet should be cut at the limit")
}

func TestExtractRowLinkFromContainerAnchor(t *testing.T) {
	p := newTestPipeline(t)
	doc := docFromHTML(t, `<a href="/item/guitar-iid-9" id="row">Acoustic guitar ₹ 7,500</a>`)

	row := p.extractRow(doc.Find("#row"), "guitar", logger.ForScraper("guitar"))

	assert.NotNil(t, row)
	assert.Equal(t, "https://www.olx.in/item/guitar-iid-9", *row.URL,
		"Anchor containers should resolve their own href")
	assert.Equal(t, int64(7500), *row.Price)
}

func TestResolveAgainst(t *testing.T) {
	p := newTestPipeline(t)

	assert.Equal(t, "https://www.olx.in/item/x", resolveAgainst(p.baseURL, "/item/x"))
	assert.Equal(t, "https://cdn.example/x", resolveAgainst(p.baseURL, "https://cdn.example/x"))
}
