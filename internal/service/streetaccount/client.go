package streetaccount

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"StreetPull/internal/domain/models"
	drepo "StreetPull/internal/domain/repository"
	xhttp "StreetPull/pkg/http"
)

// Client implements a HeadlinesSource backed by the StreetAccount News REST API.
type Client struct {
	baseURL string
	http    *xhttp.Client

	// Filter vocabularies attached to every headlines request. Empty slices
	// are omitted: the endpoint rejects empty filter arrays.
	Categories []string
	Topics     []string
	Regions    []string
	Sectors    []string
}

// New creates a StreetAccount client. The vendor uses basic auth over TLS.
func New(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithBasicAuth(username, password),
		),
	}
}

// NewWithHTTP builds a client over a preconfigured transport, mainly for tests.
func NewWithHTTP(baseURL string, hc *xhttp.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ drepo.HeadlinesSource = (*Client)(nil)

type tickerFilter struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type searchTime struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type headlinesRequestData struct {
	Tickers    []tickerFilter `json:"tickers"`
	Categories []string       `json:"categories,omitempty"`
	Topics     []string       `json:"topics,omitempty"`
	Regions    []string       `json:"regions,omitempty"`
	Sectors    []string       `json:"sectors,omitempty"`
	SearchTime searchTime     `json:"searchTime"`
	IsPrimary  *bool          `json:"isPrimary,omitempty"`
}

type requestPagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type headlinesRequest struct {
	Data headlinesRequestData `json:"data"`
	Meta struct {
		Pagination requestPagination `json:"pagination"`
	} `json:"meta"`
}

type rawHeadline struct {
	ID             string   `json:"id"`
	Headlines      string   `json:"headlines"`
	StoryTime      string   `json:"storyTime"`
	PrimarySymbols []string `json:"primarySymbols"`
	Symbols        []string `json:"symbols"`
	Subjects       []string `json:"subjects"`
	Categories     []string `json:"categories"`
	StoryBody      string   `json:"storyBody"`
	URL            string   `json:"url"`
}

type headlinesResponse struct {
	Data []rawHeadline `json:"data"`
	Meta struct {
		Pagination struct {
			Total  int `json:"total"`
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Headlines fetches one page of stories for req within window. Failures are
// classified so the caller can decide whether to retry: transport errors,
// 5xx and 429 are transient, everything else is permanent.
func (c *Client) Headlines(ctx context.Context, req models.TickerRequest, window models.DateRange, limit, offset int) (*models.Page, error) {
	body := headlinesRequest{}
	body.Data = headlinesRequestData{
		Tickers:    []tickerFilter{{Value: req.Symbol, Type: string(req.AssetType)}},
		Categories: c.Categories,
		Topics:     c.Topics,
		Regions:    c.Regions,
		Sectors:    c.Sectors,
		SearchTime: searchTime{Start: window.Start, End: window.End},
	}
	if req.IsPrimaryOnly {
		t := true
		body.Data.IsPrimary = &t
	}
	body.Meta.Pagination = requestPagination{Limit: limit, Offset: offset}

	var resp headlinesResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/headlines",
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, classify(err)
	}

	page := &models.Page{
		Items:  make([]models.NewsItem, 0, len(resp.Data)),
		Offset: resp.Meta.Pagination.Offset,
		Limit:  resp.Meta.Pagination.Limit,
		Total:  resp.Meta.Pagination.Total,
	}
	for _, raw := range resp.Data {
		item, err := normalize(raw)
		if err != nil {
			return nil, models.NewPermanentError(0, err)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

type filtersResponse struct {
	Data struct {
		FlattenedFilters struct {
			Categories []namedFilter `json:"categories"`
			Topics     []namedFilter `json:"topics"`
			Regions    []namedFilter `json:"regions"`
			Sectors    []namedFilter `json:"sectors"`
		} `json:"flattenedFilters"`
	} `json:"data"`
}

type namedFilter struct {
	Name string `json:"name"`
}

// Filters fetches the available filter vocabularies.
func (c *Client) Filters(ctx context.Context) (*models.FilterVocabulary, error) {
	var resp filtersResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/filters",
		QueryParams: map[string][]string{
			"structured": {"true"},
			"flattened":  {"true"},
		},
	}, &resp)
	if err != nil {
		return nil, classify(err)
	}

	v := &models.FilterVocabulary{}
	for _, f := range resp.Data.FlattenedFilters.Categories {
		v.Categories = append(v.Categories, f.Name)
	}
	for _, f := range resp.Data.FlattenedFilters.Topics {
		v.Topics = append(v.Topics, f.Name)
	}
	for _, f := range resp.Data.FlattenedFilters.Regions {
		v.Regions = append(v.Regions, f.Name)
	}
	for _, f := range resp.Data.FlattenedFilters.Sectors {
		v.Sectors = append(v.Sectors, f.Name)
	}
	return v, nil
}

func normalize(raw rawHeadline) (models.NewsItem, error) {
	if raw.ID == "" {
		return models.NewsItem{}, fmt.Errorf("headline without id")
	}

	var storyTime time.Time
	if raw.StoryTime != "" {
		t, err := time.Parse(time.RFC3339, raw.StoryTime)
		if err != nil {
			return models.NewsItem{}, fmt.Errorf("parse storyTime %q: %w", raw.StoryTime, err)
		}
		storyTime = t
	}

	return models.NewsItem{
		ID:             raw.ID,
		Headline:       raw.Headlines,
		StoryTime:      storyTime,
		PrimarySymbols: raw.PrimarySymbols,
		Symbols:        raw.Symbols,
		Subjects:       raw.Subjects,
		Categories:     raw.Categories,
		Body:           raw.StoryBody,
		URL:            raw.URL,
	}, nil
}

func classify(err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500 {
			return models.NewTransientError(se.StatusCode, err)
		}
		return models.NewPermanentError(se.StatusCode, err)
	}
	if strings.Contains(err.Error(), "decode json") {
		return models.NewPermanentError(0, err)
	}
	// transport-level failure
	return models.NewTransientError(0, err)
}
