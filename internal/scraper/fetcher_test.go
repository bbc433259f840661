package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchURL(t *testing.T) {
	testCases := []struct {
		name    string
		baseURL string
		query   string
		page    int
		want    string
	}{
		{
			name:    "multi word query",
			baseURL: "https://www.olx.in",
			query:   "maruti swift",
			page:    1,
			want:    "https://www.olx.in/items/q-maruti-swift?page=1",
		},
		{
			name:    "trailing slash trimmed",
			baseURL: "https://www.olx.in/",
			query:   "sofa",
			page:    3,
			want:    "https://www.olx.in/items/q-sofa?page=3",
		},
		{
			name:    "surrounding whitespace slugified away",
			baseURL: "https://www.olx.in",
			query:   "  royal enfield  ",
			page:    2,
			want:    "https://www.olx.in/items/q-royal-enfield?page=2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SearchURL(tc.baseURL, tc.query, tc.page))
		})
	}
}

func TestRandDelayBounds(t *testing.T) {
	min := 1 * time.Millisecond
	max := 5 * time.Millisecond

	for i := 0; i < 100; i++ {
		d := randDelay(min, max)
		assert.GreaterOrEqual(t, d, min, "Delay should never undershoot the minimum")
		assert.Less(t, d, max, "Delay should stay below the maximum")
	}

	assert.Equal(t, min, randDelay(min, min), "Equal bounds should collapse to the minimum")
}
