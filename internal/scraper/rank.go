package scraper

import (
	"math"
	"sort"
)

// maxComparables caps how many listings the comparables view returns
const maxComparables = 10

// ToleranceBand is the inclusive price window around a reference price
type ToleranceBand struct {
	Low  float64
	High float64
}

// NewToleranceBand builds the band for a reference price and a tolerance
// expressed in percent: [ref*(1-t/100), ref*(1+t/100)].
func NewToleranceBand(referencePrice, tolerancePercent float64) ToleranceBand {
	return ToleranceBand{
		Low:  referencePrice * (1 - tolerancePercent/100),
		High: referencePrice * (1 + tolerancePercent/100),
	}
}

// Contains reports whether a price falls inside the band, bounds included
func (b ToleranceBand) Contains(price int64) bool {
	p := float64(price)
	return b.Low <= p && p <= b.High
}

// FilterByTolerance keeps the listings whose resolved price falls inside
// the tolerance band around the reference price. Listings without a
// price never match. Input order is preserved and the input is untouched.
func FilterByTolerance(listings []ListingRecord, referencePrice, tolerancePercent float64) []ListingRecord {
	band := NewToleranceBand(referencePrice, tolerancePercent)

	var matched []ListingRecord
	for _, l := range listings {
		if l.Price != nil && band.Contains(*l.Price) {
			matched = append(matched, l)
		}
	}
	return matched
}

// RankByProximity orders the priced listings by distance to the
// reference price, closest first. Listings without a price are dropped;
// ties keep their scrape order.
func RankByProximity(listings []ListingRecord, referencePrice float64) []ListingRecord {
	var priced []ListingRecord
	for _, l := range listings {
		if l.Price != nil {
			priced = append(priced, l)
		}
	}

	sort.SliceStable(priced, func(i, j int) bool {
		di := math.Abs(float64(*priced[i].Price) - referencePrice)
		dj := math.Abs(float64(*priced[j].Price) - referencePrice)
		return di < dj
	})
	return priced
}

// Comparables returns the listings to show against a reference price:
// in-band matches when there are any, otherwise the closest priced
// listings. Either way at most ten records come back.
func Comparables(listings []ListingRecord, referencePrice, tolerancePercent float64) []ListingRecord {
	results := FilterByTolerance(listings, referencePrice, tolerancePercent)
	if len(results) == 0 {
		results = RankByProximity(listings, referencePrice)
	}
	if len(results) > maxComparables {
		results = results[:maxComparables]
	}
	return results
}

// DiffPercent is the signed distance of a price from the reference
// price, in percent of the reference.
func DiffPercent(price int64, referencePrice float64) float64 {
	if referencePrice == 0 {
		return 0
	}
	return (float64(price) - referencePrice) / referencePrice * 100
}

// Summary aggregates a result set for reporting
type Summary struct {
	Total     int     `json:"total"`
	WithPrice int     `json:"with_price"`
	MinPrice  int64   `json:"min_price"`
	MaxPrice  int64   `json:"max_price"`
	AvgPrice  float64 `json:"avg_price"`
}

// Summarize computes counts and price aggregates over listings
func Summarize(listings []ListingRecord) Summary {
	stats := Summary{Total: len(listings)}

	var total int64
	for _, l := range listings {
		if l.Price == nil {
			continue
		}
		price := *l.Price
		if stats.WithPrice == 0 {
			stats.MinPrice = price
			stats.MaxPrice = price
		}
		if price < stats.MinPrice {
			stats.MinPrice = price
		}
		if price > stats.MaxPrice {
			stats.MaxPrice = price
		}
		total += price
		stats.WithPrice++
	}

	if stats.WithPrice > 0 {
		stats.AvgPrice = float64(total) / float64(stats.WithPrice)
	}
	return stats
}
