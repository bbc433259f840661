package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldQuery is one step of an ordered field strategy. When Attr is set
// the attribute value is read instead of the element text.
type FieldQuery struct {
	Selector string
	Attr     string
}

// Strategy is the declarative selector table the extractor interprets.
// Orders matter: the site ships several markup generations at once, so
// every list runs hottest-first and the first step yielding a non-empty
// result wins. There is no merging across steps.
type Strategy struct {
	// Containers locate per-listing elements in a result page.
	Containers []string
	// Markers confirm listing content has rendered; defaults to the
	// first container selector when empty.
	Markers []string

	Title    []FieldQuery
	Price    []FieldQuery
	Location []FieldQuery
	Link     []FieldQuery

	// AnchorFallbackCap bounds the generic anchor sweep used when no
	// container selector matched anything.
	AnchorFallbackCap int
	// AnchorTextMax rejects anchors with longer text during the sweep.
	AnchorTextMax int
}

// DefaultStrategy returns the selector table for OLX search result pages,
// covering the markup generations observed so far.
func DefaultStrategy() Strategy {
	return Strategy{
		Containers: []string{
			"ul > li[data-aut-id]",
			"li.EIR5N",
			"div[data-aut-id='itemBox']",
			"li._1DNjI",
			"div._2ZxqI",
		},
		Markers: []string{"li[data-aut-id]"},
		Title: []FieldQuery{
			{Selector: "h2"},
			{Selector: "span[data-aut-id='itemTitle']"},
			{Selector: "div._2tW1I"},
		},
		Price: []FieldQuery{
			{Selector: "span._2xKfz"},
			{Selector: "span[data-aut-id='itemPrice']"},
			{Selector: "div._1zgtX"},
		},
		Location: []FieldQuery{
			{Selector: "p._2TVI3"},
			{Selector: "span[data-aut-id='item-location']"},
			{Selector: "div._1KOFM"},
		},
		Link: []FieldQuery{
			{Selector: "a", Attr: "href"},
		},
		AnchorFallbackCap: 200,
		AnchorTextMax:     200,
	}
}

// markers returns the render-confirmation selectors
func (st Strategy) markers() []string {
	if len(st.Markers) > 0 {
		return st.Markers
	}
	if len(st.Containers) > 0 {
		return st.Containers[:1]
	}
	return nil
}

// queryValue evaluates a single query against a selection and returns
// the trimmed text (or attribute) of the first matching element.
func queryValue(s *goquery.Selection, q FieldQuery) string {
	found := s.Find(q.Selector).First()
	if found.Length() == 0 {
		return ""
	}
	if q.Attr != "" {
		value, _ := found.Attr(q.Attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(found.Text())
}

// applyQueries walks an ordered query list and returns the first
// non-empty result
func applyQueries(s *goquery.Selection, queries []FieldQuery) string {
	for _, q := range queries {
		if result := queryValue(s, q); result != "" {
			return result
		}
	}
	return ""
}

// ResolveContainers walks the container list and returns the selection of
// the first selector matching at least one element, along with the
// selector that won. A nil selection means the whole table missed.
func ResolveContainers(doc *goquery.Document, st Strategy) (*goquery.Selection, string) {
	for _, selector := range st.Containers {
		found := doc.Find(selector)
		if found.Length() > 0 {
			return found, selector
		}
	}
	return nil, ""
}
