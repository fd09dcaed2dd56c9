package domain

import "time"

// LookedUpAtLayout is the day-month-year-hour:minute format used for looked_up_at
const LookedUpAtLayout = "02-01-2006-15:04"

// LookupResult is the market price recorded for one product display name
type LookupResult struct {
	MarketPrice *int   `json:"market_price" bson:"market_price"`
	LookedUpAt  string `json:"looked_up_at" bson:"looked_up_at"`
}

// PriceTable maps original product display names to their lookup result
type PriceTable map[string]LookupResult

// RunStats counts lookup outcomes within a single run
type RunStats struct {
	Products        int `json:"products"`
	Matched         int `json:"matched"`
	NoMatch         int `json:"no_match"`
	BackendFailures int `json:"backend_failures"`
	CacheHits       int `json:"cache_hits"`
	Recycles        int `json:"recycles"`
}

// PriceRun is one sequential pass over a deduplicated set of product names
type PriceRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Results    PriceTable `json:"results"`
	Stats      RunStats   `json:"stats"`
}

// Offer is a single record produced by a retail scraping collaborator.
// Only the display name takes part in market price lookups.
type Offer struct {
	Provider    string `json:"provider"`
	ProductName string `json:"product_name"`
}
