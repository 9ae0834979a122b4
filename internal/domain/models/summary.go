package models

import "time"

// TickerStatus is the per-ticker outcome recorded in the batch summary.
type TickerStatus string

const (
	StatusOK        TickerStatus = "ok"
	StatusEmpty     TickerStatus = "empty"
	StatusExhausted TickerStatus = "exhausted"
	StatusFailed    TickerStatus = "failed"
)

// TickerSummary is one row of the cross-ticker summary report.
type TickerSummary struct {
	Ticker          string       `json:"ticker"`
	InstitutionName string       `json:"institution_name"`
	Status          TickerStatus `json:"status"`
	NewsCount       int          `json:"news_count"`
	PrimaryMentions int          `json:"primary_mentions"`
	SkippedSeen     int          `json:"skipped_seen"`
	DateRange       string       `json:"date_range"`
	EarliestNews    string       `json:"earliest_news"`
	LatestNews      string       `json:"latest_news"`
	Categories      []string     `json:"categories"`
	Error           string       `json:"error,omitempty"`
}

// BatchSummary aggregates one full run over all configured tickers.
type BatchSummary struct {
	Started        time.Time       `json:"started"`
	Finished       time.Time       `json:"finished"`
	LookbackDays   int             `json:"lookback_days"`
	TotalNewsItems int             `json:"total_news_items"`
	Tickers        []TickerSummary `json:"tickers"`
	Filters        *FilterVocabulary `json:"filters,omitempty"`
}

// Failed counts tickers that did not complete.
func (s *BatchSummary) Failed() int {
	n := 0
	for _, t := range s.Tickers {
		if t.Status == StatusExhausted || t.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Add appends a ticker row and folds its count into the total.
func (s *BatchSummary) Add(row TickerSummary) {
	s.Tickers = append(s.Tickers, row)
	s.TotalNewsItems += row.NewsCount
}
