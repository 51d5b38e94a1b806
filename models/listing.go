package models

import "time"

// DateLayout is the on-disk date format of a stats row.
const DateLayout = "2006-01-02"

// Product is one tracked search, loaded from products.yaml.
type Product struct {
	Slug  string `yaml:"slug"`
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
	Emoji string `yaml:"emoji"`
}

// Listing is a single marketplace item with a known price.
// It only lives for the duration of one fetch.
type Listing struct {
	ID       string
	Title    string
	Price    int
	Currency string
	City     string
	Region   string
}

// DailyStats is the aggregated price summary of one product on one day.
type DailyStats struct {
	Date        time.Time
	Count       int
	MinPrice    int
	MaxPrice    int
	MeanPrice   float64
	MedianPrice float64
}

// Day returns the stats date formatted as YYYY-MM-DD.
func (s DailyStats) Day() string {
	return s.Date.Format(DateLayout)
}
