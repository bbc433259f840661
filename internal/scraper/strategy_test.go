package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategy(t *testing.T) {
	st := DefaultStrategy()

	assert.Len(t, st.Containers, 5, "Should cover the known container generations")
	assert.Equal(t, "ul > li[data-aut-id]", st.Containers[0], "Current markup generation should be probed first")
	assert.Equal(t, "href", st.Link[0].Attr, "Link query should read the href attribute")
	assert.Equal(t, 200, st.AnchorFallbackCap, "Anchor sweep should be capped")
	assert.Equal(t, 200, st.AnchorTextMax, "Anchor text length should be bounded")
}

func TestResolveContainersPrecedence(t *testing.T) {
	testCases := []struct {
		name         string
		html         string
		wantSelector string
		wantCount    int
	}{
		{
			name: "current generation wins",
			html: `<ul><li data-aut-id="itemBox1">a</li><li data-aut-id="itemBox2">b</li></ul>
				<li class="EIR5N">legacy</li>`,
			wantSelector: "ul > li[data-aut-id]",
			wantCount:    2,
		},
		{
			name:         "legacy class when current generation absent",
			html:         `<ul><li class="EIR5N">a</li><li class="EIR5N">b</li><li class="EIR5N">c</li></ul>`,
			wantSelector: "li.EIR5N",
			wantCount:    3,
		},
		{
			name:         "item box generation",
			html:         `<div data-aut-id="itemBox">only</div>`,
			wantSelector: "div[data-aut-id='itemBox']",
			wantCount:    1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := docFromHTML(t, tc.html)
			sel, matched := ResolveContainers(doc, DefaultStrategy())

			assert.Equal(t, tc.wantSelector, matched, "First matching selector should win")
			assert.NotNil(t, sel, "Selection should not be nil when a selector matched")
			assert.Equal(t, tc.wantCount, sel.Length(), "Should return every element of the winning selector")
		})
	}
}

func TestResolveContainersMiss(t *testing.T) {
	doc := docFromHTML(t, `<div><p>No listings on this page</p></div>`)
	sel, matched := ResolveContainers(doc, DefaultStrategy())

	assert.Nil(t, sel, "Selection should be nil when the whole table missed")
	assert.Empty(t, matched, "No selector name should be reported on a miss")
}

func TestQueryValue(t *testing.T) {
	doc := docFromHTML(t, `<div id="card">
		<a href="  /item/sofa-set-iid-42  ">  Sofa set  </a>
		<span class="price">  ₹ 12,000  </span>
	</div>`)
	card := doc.Find("#card")

	assert.Equal(t, "/item/sofa-set-iid-42", queryValue(card, FieldQuery{Selector: "a", Attr: "href"}),
		"Attr mode should return the trimmed attribute value")
	assert.Equal(t, "₹ 12,000", queryValue(card, FieldQuery{Selector: "span.price"}),
		"Text mode should return the trimmed element text")
	assert.Empty(t, queryValue(card, FieldQuery{Selector: "h2"}),
		"Missing element should yield an empty value")
}

func TestApplyQueriesFirstNonEmptyWins(t *testing.T) {
	doc := docFromHTML(t, `<li id="card">
		<span data-aut-id="itemTitle">Maruti Swift VDI</span>
		<div class="_2tW1I">Older markup title</div>
	</li>`)
	card := doc.Find("#card")

	got := applyQueries(card, DefaultStrategy().Title)
	assert.Equal(t, "Maruti Swift VDI", got, "Earlier cascade step should win over later ones")

	assert.Empty(t, applyQueries(card, DefaultStrategy().Price), "All-miss cascade should yield empty")
}

func TestMarkers(t *testing.T) {
	st := Strategy{Containers: []string{"li.a", "li.b"}}
	assert.Equal(t, []string{"li.a"}, st.markers(), "Markers should default to the first container selector")

	st.Markers = []string{"div.ready"}
	assert.Equal(t, []string{"div.ready"}, st.markers(), "Explicit markers should be used as given")

	assert.Nil(t, Strategy{}.markers(), "Empty strategy should have no markers")
}
