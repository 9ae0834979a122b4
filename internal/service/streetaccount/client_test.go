package streetaccount

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StreetPull/internal/domain/models"
	xhttp "StreetPull/pkg/http"
)

func testRequest() models.TickerRequest {
	return models.TickerRequest{
		Symbol:       "RY-CA",
		Name:         "Royal Bank of Canada",
		AssetType:    models.AssetEquity,
		LookbackDays: 30,
	}
}

func testWindow() models.DateRange {
	end := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	return models.DateRange{Start: end.AddDate(0, 0, -30), End: end}
}

func newTestClient(srv *httptest.Server) *Client {
	return NewWithHTTP(srv.URL, xhttp.NewClient(xhttp.WithHTTPClient(srv.Client())))
}

func TestHeadlinesBuildsVendorRequest(t *testing.T) {
	var got headlinesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/headlines" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(headlinesResponse{})
	}))
	defer srv.Close()

	c := newTestClient(srv)
	req := testRequest()
	req.IsPrimaryOnly = true

	if _, err := c.Headlines(context.Background(), req, testWindow(), 100, 200); err != nil {
		t.Fatalf("headlines: %v", err)
	}

	if len(got.Data.Tickers) != 1 || got.Data.Tickers[0].Value != "RY-CA" || got.Data.Tickers[0].Type != "Equity" {
		t.Fatalf("unexpected tickers %+v", got.Data.Tickers)
	}
	if got.Meta.Pagination.Limit != 100 || got.Meta.Pagination.Offset != 200 {
		t.Fatalf("unexpected pagination %+v", got.Meta.Pagination)
	}
	// primary-subject restriction must travel with the request, never be a post-filter
	if got.Data.IsPrimary == nil || !*got.Data.IsPrimary {
		t.Fatalf("isPrimary not set on outgoing request")
	}
}

func TestHeadlinesOmitsIsPrimaryWhenOff(t *testing.T) {
	var got headlinesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(headlinesResponse{})
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0); err != nil {
		t.Fatalf("headlines: %v", err)
	}
	if got.Data.IsPrimary != nil {
		t.Fatalf("isPrimary should be omitted, got %v", *got.Data.IsPrimary)
	}
}

func TestHeadlinesNormalizesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := headlinesResponse{
			Data: []rawHeadline{{
				ID:             "story-1",
				Headlines:      "RBC beats estimates",
				StoryTime:      "2026-08-25T10:00:00Z",
				PrimarySymbols: []string{"RY-CA"},
				Symbols:        []string{"RY-CA", "TD-CA"},
				Subjects:       []string{"earnings"},
				Categories:     []string{"Earnings"},
				URL:            "https://news.example.com/story-1",
			}},
		}
		resp.Meta.Pagination.Total = 1
		resp.Meta.Pagination.Limit = 100
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	page, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0)
	if err != nil {
		t.Fatalf("headlines: %v", err)
	}
	if len(page.Items) != 1 || page.Total != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	item := page.Items[0]
	if item.ID != "story-1" || item.Headline != "RBC beats estimates" {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.StoryTime.Equal(time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected story time %v", item.StoryTime)
	}
	if !item.IsPrimaryFor("RY-CA") {
		t.Fatalf("expected primary mention")
	}
}

func TestHeadlinesClassifiesServerErrorsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !models.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHeadlinesClassifiesRateLimitTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0)
	if !models.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHeadlinesClassifiesClientErrorsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad filter", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0)
	if err == nil || models.IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestHeadlinesMalformedBodyPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Headlines(context.Background(), testRequest(), testWindow(), 100, 0)
	if err == nil || models.IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filters" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("flattened") != "true" {
			t.Errorf("flattened not requested")
		}
		resp := filtersResponse{}
		resp.Data.FlattenedFilters.Categories = []namedFilter{{Name: "Earnings"}, {Name: "M&A"}}
		resp.Data.FlattenedFilters.Regions = []namedFilter{{Name: "North America"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	v, err := c.Filters(context.Background())
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	if len(v.Categories) != 2 || v.Categories[0] != "Earnings" {
		t.Fatalf("unexpected categories %v", v.Categories)
	}
	if len(v.Regions) != 1 || v.Regions[0] != "North America" {
		t.Fatalf("unexpected regions %v", v.Regions)
	}
}
