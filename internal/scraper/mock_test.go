package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
)

// docFromHTML parses test HTML into a goquery document
func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	assert.NoError(t, err)
	return doc
}

// newTestScraper builds a scraper with all defaults; tests then inject
// fetchFunc so no browser is involved
func newTestScraper(t *testing.T) *Scraper {
	t.Helper()
	s, err := NewScraper(ScraperConfig{})
	assert.NoError(t, err)
	return s
}

// searchPageHTML mimics one OLX search result page with five listings
// in current-generation markup.
const searchPageHTML = `<!DOCTYPE html>
<html>
<head><title>swift - Search results</title></head>
<body>
<ul data-aut-id="itemsList">
	<li data-aut-id="itemBox1">
		<a href="/item/maruti-swift-vdi-2018-iid-1001">
			<span class="_2xKfz" data-aut-id="itemPrice">₹ 4,50,000</span>
			<span data-aut-id="itemTitle">Maruti Swift VDI</span>
			<span data-aut-id="item-location">Andheri West, Mumbai</span>
		</a>
	</li>
	<li data-aut-id="itemBox2">
		<a href="/item/swift-vxi-2017-iid-1002">
			<span class="_2xKfz" data-aut-id="itemPrice">₹ 3,80,000</span>
			<span data-aut-id="itemTitle">Swift VXI 2017</span>
			<span data-aut-id="item-location">Koramangala, Bengaluru</span>
		</a>
	</li>
	<li data-aut-id="itemBox3">
		<a href="/item/swift-dzire-2015-iid-1003">
			<span class="_2xKfz" data-aut-id="itemPrice">₹ 5,10,000</span>
			<span data-aut-id="itemTitle">Swift Dzire 2015</span>
			<span data-aut-id="item-location">Saket, Delhi</span>
		</a>
	</li>
	<li data-aut-id="itemBox4">
		<a href="/item/swift-zxi-2020-iid-1004">
			<span class="_2xKfz" data-aut-id="itemPrice">₹ 6,25,000</span>
			<span data-aut-id="itemTitle">Swift ZXI 2020</span>
			<span data-aut-id="item-location">Viman Nagar, Pune</span>
		</a>
	</li>
	<li data-aut-id="itemBox5">
		<a href="/item/swift-ldi-2014-iid-1005">
			<span class="_2xKfz" data-aut-id="itemPrice">₹ 2,95,000</span>
			<span data-aut-id="itemTitle">Swift LDI 2014</span>
			<span data-aut-id="item-location">Banjara Hills, Hyderabad</span>
		</a>
	</li>
</ul>
</body>
</html>`

// searchPageTitles lists the titles of searchPageHTML in document order
var searchPageTitles = []string{
	"Maruti Swift VDI",
	"Swift VXI 2017",
	"Swift Dzire 2015",
	"Swift ZXI 2020",
	"Swift LDI 2014",
}
