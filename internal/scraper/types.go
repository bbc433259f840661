package scraper

// DefaultLocation is the placeholder used when no location field resolved
const DefaultLocation = "Location not specified"

// ListingRecord represents one extracted marketplace listing.
// Title, Price and URL are nil when no strategy step resolved them;
// a record always carries at least one of title and price.
type ListingRecord struct {
	Title    *string `json:"title"`
	Price    *int64  `json:"price"`
	URL      *string `json:"url"`
	Location string  `json:"location"`
	Year     *int    `json:"year,omitempty"`
	Quantity *int64  `json:"quantity,omitempty"`
	RawText  string  `json:"raw_text"`
}

// HasPrice reports whether the listing carries a resolved price
func (l *ListingRecord) HasPrice() bool {
	return l.Price != nil
}

// PriceValue returns the resolved price, or 0 when unresolved
func (l *ListingRecord) PriceValue() int64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// ScrapeRequest describes one paginated scrape invocation
type ScrapeRequest struct {
	// Query is the raw search term; spaces are slugified into the URL
	Query string
	// Pages is the number of result pages to visit, starting at 1
	Pages int
}

// ScrapeResult carries the accumulated listings plus per-page outcome
// counters, so callers can tell "site had no matches" (pages fetched,
// nothing extracted) from "nothing could be fetched at all".
type ScrapeResult struct {
	Listings []ListingRecord `json:"listings"`

	PagesRequested int `json:"pages_requested"`
	PagesFetched   int `json:"pages_fetched"`
	PagesFailed    int `json:"pages_failed"`
	// Unconfirmed counts fetched pages where no listing marker appeared
	// before the wait deadline; extraction still ran on them.
	Unconfirmed int `json:"unconfirmed"`
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
