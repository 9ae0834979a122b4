package models

// Requests for news HTTP endpoints. Defined in domain for consistency and reuse.

type NewsQueryRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type SummaryRequest struct {
	Run string `query:"run" json:"run"` // empty selects the latest run
}
