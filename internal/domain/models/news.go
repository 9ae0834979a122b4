package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// AssetType is the instrument classification accepted by the headlines endpoint.
type AssetType string

const (
	AssetIndex          AssetType = "Index"
	AssetETF            AssetType = "ETF"
	AssetMutualFund     AssetType = "MutualFund"
	AssetPortfolio      AssetType = "Portfolio"
	AssetEquity         AssetType = "Equity"
	AssetPrivateCompany AssetType = "PrivateCompany"
	AssetFixedIncome    AssetType = "FixedIncome"
	AssetHolder         AssetType = "Holder"
)

// Valid reports whether t is one of the vendor-accepted asset types.
func (t AssetType) Valid() bool {
	switch t {
	case AssetIndex, AssetETF, AssetMutualFund, AssetPortfolio,
		AssetEquity, AssetPrivateCompany, AssetFixedIncome, AssetHolder:
		return true
	}
	return false
}

// NewsItem is a single normalized headline record. Identity is ID: two items
// with the same ID are the same story.
type NewsItem struct {
	ID             string    `json:"id"`
	Headline       string    `json:"headline"`
	StoryTime      time.Time `json:"storyTime"`
	PrimarySymbols []string  `json:"primarySymbols"`
	Symbols        []string  `json:"symbols"`
	Subjects       []string  `json:"subjects"`
	Categories     []string  `json:"categories"`
	Body           string    `json:"body,omitempty"`
	URL            string    `json:"url,omitempty"`
}

// IsPrimaryFor reports whether symbol is a primary subject of the story.
func (n *NewsItem) IsPrimaryFor(symbol string) bool {
	for _, s := range n.PrimarySymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// TickerRequest describes one monitored instrument to query news for.
type TickerRequest struct {
	Symbol        string
	Name          string
	AssetType     AssetType
	LookbackDays  int
	IsPrimaryOnly bool
}

// Validate reports request problems that would be rejected by the vendor.
// Returned errors are *ConfigError: fatal, never retried.
func (r TickerRequest) Validate() error {
	if r.Symbol == "" {
		return &ConfigError{Field: "symbol", Err: errors.New("must not be empty")}
	}
	if !r.AssetType.Valid() {
		return &ConfigError{Field: "asset_type", Err: fmt.Errorf("unknown asset type %q", r.AssetType)}
	}
	if r.LookbackDays <= 0 {
		return &ConfigError{Field: "lookback_days", Err: fmt.Errorf("must be positive, got %d", r.LookbackDays)}
	}
	return nil
}

// DateRange is the trailing window over which news is requested.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LookbackRange builds the date range for a request ending at now.
func (r TickerRequest) LookbackRange(now time.Time) DateRange {
	return DateRange{
		Start: now.AddDate(0, 0, -r.LookbackDays),
		End:   now,
	}
}

// Page is one page of headlines as reported by the source.
type Page struct {
	Items  []NewsItem
	Offset int
	Limit  int
	Total  int
}

// FetchResult is the aggregated, deduplicated record set for one ticker.
type FetchResult struct {
	Symbol         string
	Items          []NewsItem
	CategoriesSeen []string
	Earliest       time.Time
	Latest         time.Time

	// Total is the item count reported by the last page fetched. When the
	// source reports more than it actually returns (access restrictions),
	// Warnings carries a note and the result is still considered complete.
	Total    int
	Warnings []string
}

// SortByStoryTimeDesc orders items most recent first. Applied after full
// aggregation so that retry-interleaved page order never leaks into output.
func (r *FetchResult) SortByStoryTimeDesc() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].StoryTime.After(r.Items[j].StoryTime)
	})
}

// PrimaryMentions counts items where the ticker is a primary subject.
func (r *FetchResult) PrimaryMentions() int {
	n := 0
	for i := range r.Items {
		if r.Items[i].IsPrimaryFor(r.Symbol) {
			n++
		}
	}
	return n
}

// FilterVocabulary is the set of valid filter values advertised by the source.
type FilterVocabulary struct {
	Categories []string `json:"categories"`
	Topics     []string `json:"topics"`
	Regions    []string `json:"regions"`
	Sectors    []string `json:"sectors"`
}
