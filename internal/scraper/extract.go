package scraper

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listingscout/helpers"
	"listingscout/logger"
	"listingscout/pkg/errors"
)

// extractListings runs the strategy table over a rendered document and
// returns the records in document order.
func (s *Scraper) extractListings(doc *goquery.Document, query string, log *logger.Logger) []ListingRecord {
	containers, matched := ResolveContainers(doc, s.strategy)
	if containers == nil {
		log.Debug().Msg("No container selector matched, sweeping anchors")
		return s.anchorFallback(doc, query, log)
	}

	log.Debug().
		Str("selector", matched).
		Int("containers", containers.Length()).
		Msg("Containers resolved")

	var records []ListingRecord
	containers.Each(func(i int, sel *goquery.Selection) {
		if rec := s.extractRecord(sel, query, log); rec != nil {
			records = append(records, *rec)
		}
	})
	return records
}

// anchorFallback treats every short-texted anchor as a listing container.
// It is the coldest tier of the strategy: candidates are capped and the
// usual field extraction runs over each one.
func (s *Scraper) anchorFallback(doc *goquery.Document, query string, log *logger.Logger) []ListingRecord {
	var records []ListingRecord
	candidates := 0

	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || utf8.RuneCountInString(text) >= s.strategy.AnchorTextMax {
			return true
		}
		candidates++
		if rec := s.extractRecord(sel, query, log); rec != nil {
			records = append(records, *rec)
		}
		return candidates < s.strategy.AnchorFallbackCap
	})

	if len(records) > 0 {
		log.Debug().Int("records", len(records)).Msg("Anchor sweep produced records")
	}
	return records
}

// extractRecord turns one container into a listing record. A container
// that resolves neither title nor price yields nil; so does one whose
// extraction fails outright. Failures never escape to the page level.
func (s *Scraper) extractRecord(sel *goquery.Selection, query string, log *logger.Logger) (rec *ListingRecord) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewContainerExtraction(query, "container skipped", nil)
			log.Debug().Interface("panic", r).Msg(err.Message)
			rec = nil
		}
	}()

	rawText := textLines(sel)
	if rawText == "" {
		return nil
	}

	var title *string
	if t := applyQueries(sel, s.strategy.Title); t != "" {
		title = &t
	}

	// The price cascade keeps walking past steps that normalize to zero,
	// then falls back to the whole container text.
	var price *int64
	for _, q := range s.strategy.Price {
		value := queryValue(sel, q)
		if value == "" {
			continue
		}
		if p := NormalizePrice(value); p != nil && *p != 0 {
			price = p
			break
		}
	}
	if price == nil {
		price = NormalizePrice(rawText)
	}

	var link *string
	if href := applyQueries(sel, s.strategy.Link); href != "" {
		resolved := s.resolveHref(href)
		link = &resolved
	} else if href, ok := sel.Attr("href"); ok && href != "" {
		// The container itself may be the anchor (fallback sweep).
		resolved := s.resolveHref(strings.TrimSpace(href))
		link = &resolved
	}

	location := applyQueries(sel, s.strategy.Location)
	if location == "" {
		location = DefaultLocation
	}

	if title == nil && price == nil {
		return nil
	}
	if title == nil {
		title = strPtr(helpers.FirstLine(rawText))
	}

	return &ListingRecord{
		Title:    title,
		Price:    price,
		URL:      link,
		Location: location,
		RawText:  rawText,
	}
}

// resolveHref makes a relative href absolute against the site base URL
func (s *Scraper) resolveHref(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}
	return s.baseURL.ResolveReference(parsed).String()
}

// textLines renders a selection the way a browser reports visible text:
// one trimmed line per text node, script and style content dropped.
// Line structure is what the first-line title backfill relies on.
func textLines(sel *goquery.Selection) string {
	var lines []string
	for _, node := range sel.Nodes {
		collectTextLines(node, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectTextLines(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextLines(c, lines)
	}
}
