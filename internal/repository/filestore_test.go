package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"StreetPull/internal/domain/models"
)

func testResult() (*models.FetchResult, models.TickerRequest) {
	at := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	req := models.TickerRequest{Symbol: "RY-CA", Name: "Royal Bank of Canada", AssetType: models.AssetEquity}
	res := &models.FetchResult{
		Symbol: "RY-CA",
		Items: []models.NewsItem{
			{
				ID:             "s-1",
				Headline:       "Royal Bank reports quarterly results",
				StoryTime:      at,
				PrimarySymbols: []string{"RY-CA"},
				Symbols:        []string{"RY-CA", "TD-CA"},
				Categories:     []string{"Earnings"},
				URL:            "https://example.com/s-1",
			},
			{
				ID:        "s-2",
				Headline:  "Sector note mentions Canadian banks",
				StoryTime: at.Add(-time.Hour),
				Symbols:   []string{"RY-CA"},
			},
		},
		CategoriesSeen: []string{"Earnings"},
		Total:          2,
	}
	return res, req
}

func newTestStore(t *testing.T, format string) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), format)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	fs.now = func() time.Time {
		return time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	}
	return fs
}

func TestWriteTickerJSON(t *testing.T) {
	fs := newTestStore(t, FormatJSON)
	res, req := testResult()

	if err := fs.WriteTicker(req, res); err != nil {
		t.Fatalf("write: %v", err)
	}

	path := filepath.Join(fs.dir, "RY_CA", "news_RY_CA_2026-08-26_09-00-00.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var doc tickerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Ticker != "RY-CA" || doc.Total != 2 || len(doc.News) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.PrimaryMentions != 1 {
		t.Fatalf("primary mentions = %d", doc.PrimaryMentions)
	}

	// json-only format must not produce a workbook
	if _, err := os.Stat(filepath.Join(fs.dir, "RY_CA", "news_RY_CA_2026-08-26_09-00-00.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("unexpected xlsx in json mode")
	}
}

func TestWriteTickerWorkbook(t *testing.T) {
	fs := newTestStore(t, FormatBoth)
	res, req := testResult()

	if err := fs.WriteTicker(req, res); err != nil {
		t.Fatalf("write: %v", err)
	}

	path := filepath.Join(fs.dir, "RY_CA", "news_RY_CA_2026-08-26_09-00-00.xlsx")
	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	got, err := wb.GetCellValue("News", "C2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != "Royal Bank reports quarterly results" {
		t.Fatalf("headline cell = %q", got)
	}
}

func TestWriteSummary(t *testing.T) {
	fs := newTestStore(t, FormatBoth)
	summary := &models.BatchSummary{
		Started:        time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC),
		Finished:       time.Date(2026, 8, 26, 8, 5, 0, 0, time.UTC),
		LookbackDays:   30,
		TotalNewsItems: 7,
		Tickers: []models.TickerSummary{
			{Ticker: "RY-CA", InstitutionName: "Royal Bank of Canada", Status: models.StatusOK, NewsCount: 7},
			{Ticker: "BMO-CA", InstitutionName: "Bank of Montreal", Status: models.StatusExhausted, Error: "boom"},
		},
	}

	if err := fs.WriteSummary(summary); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(fs.dir, "batch_summary_2026-08-26_09-00-00.json"))
	if err != nil {
		t.Fatalf("read json summary: %v", err)
	}
	var back models.BatchSummary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Tickers) != 2 || back.TotalNewsItems != 7 {
		t.Fatalf("unexpected summary %+v", back)
	}

	wb, err := excelize.OpenFile(filepath.Join(fs.dir, "summary_report_2026-08-26_09-00-00.xlsx"))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	status, err := wb.GetCellValue("Summary", "C3")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if status != string(models.StatusExhausted) {
		t.Fatalf("status cell = %q", status)
	}
}
