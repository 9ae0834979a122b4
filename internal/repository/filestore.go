package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"StreetPull/internal/domain/models"
)

const (
	FormatJSON  = "json"
	FormatExcel = "excel"
	FormatBoth  = "both"

	fileTimestamp = "2006-01-02_15-04-05"
)

// FileStore writes per-ticker news files and the cross-ticker summary report
// under a configured output directory. Each ticker gets its own subdirectory;
// file names carry the run timestamp so successive runs never overwrite.
type FileStore struct {
	dir    string
	format string
	now    func() time.Time
}

// NewFileStore creates the report writer, ensuring the output directory
// exists.
func NewFileStore(dir, format string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir, format: format, now: time.Now}, nil
}

// tickerDocument is the on-disk JSON shape for one ticker's run.
type tickerDocument struct {
	Ticker          string            `json:"ticker"`
	InstitutionName string            `json:"institution_name"`
	GeneratedAt     string            `json:"generated_at"`
	Total           int               `json:"total"`
	PrimaryMentions int               `json:"primary_mentions"`
	Categories      []string          `json:"categories,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	News            []models.NewsItem `json:"news"`
}

func (fs *FileStore) WriteTicker(req models.TickerRequest, res *models.FetchResult) error {
	tickerDir := filepath.Join(fs.dir, sanitizeName(req.Symbol))
	if err := os.MkdirAll(tickerDir, 0o755); err != nil {
		return fmt.Errorf("create ticker dir: %w", err)
	}

	stamp := fs.now().Format(fileTimestamp)
	base := fmt.Sprintf("news_%s_%s", sanitizeName(req.Symbol), stamp)

	if fs.format == FormatJSON || fs.format == FormatBoth {
		doc := tickerDocument{
			Ticker:          req.Symbol,
			InstitutionName: req.Name,
			GeneratedAt:     fs.now().Format(time.RFC3339),
			Total:           len(res.Items),
			PrimaryMentions: res.PrimaryMentions(),
			Categories:      res.CategoriesSeen,
			Warnings:        res.Warnings,
			News:            res.Items,
		}
		if err := writeJSON(filepath.Join(tickerDir, base+".json"), doc); err != nil {
			return err
		}
	}

	if fs.format == FormatExcel || fs.format == FormatBoth {
		if err := fs.writeTickerWorkbook(filepath.Join(tickerDir, base+".xlsx"), req, res); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStore) writeTickerWorkbook(path string, req models.TickerRequest, res *models.FetchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "News"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"Story ID", "Story Time", "Headline", "Primary", "Symbols", "Categories", "URL"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, it := range res.Items {
		row := []interface{}{
			it.ID,
			it.StoryTime.Format("2006-01-02 15:04:05"),
			it.Headline,
			it.IsPrimaryFor(req.Symbol),
			strings.Join(it.Symbols, ", "),
			strings.Join(it.Categories, ", "),
			it.URL,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func (fs *FileStore) WriteSummary(summary *models.BatchSummary) error {
	stamp := fs.now().Format(fileTimestamp)

	// The JSON summary is written regardless of the configured format; it is
	// the machine-readable record of the run.
	if err := writeJSON(filepath.Join(fs.dir, fmt.Sprintf("batch_summary_%s.json", stamp)), summary); err != nil {
		return err
	}

	if fs.format == FormatExcel || fs.format == FormatBoth {
		return fs.writeSummaryWorkbook(filepath.Join(fs.dir, fmt.Sprintf("summary_report_%s.xlsx", stamp)), summary)
	}
	return nil
}

func (fs *FileStore) writeSummaryWorkbook(path string, summary *models.BatchSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{
		"Ticker", "Institution", "Status", "News Count", "Primary Mentions",
		"Skipped (seen)", "Date Range", "Earliest", "Latest", "Categories", "Error",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range summary.Tickers {
		values := []interface{}{
			row.Ticker,
			row.InstitutionName,
			string(row.Status),
			row.NewsCount,
			row.PrimaryMentions,
			row.SkippedSeen,
			row.DateRange,
			row.EarliestNews,
			row.LatestNews,
			strings.Join(row.Categories, ", "),
			row.Error,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	totalsRow := len(summary.Tickers) + 3
	cell, err := excelize.CoordinatesToCellName(1, totalsRow)
	if err != nil {
		return err
	}
	totals := []interface{}{
		"TOTAL", "", "", summary.TotalNewsItems, "", "",
		fmt.Sprintf("lookback %d days", summary.LookbackDays),
	}
	if err := f.SetSheetRow(sheet, cell, &totals); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func sanitizeName(symbol string) string {
	r := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	return r.Replace(symbol)
}
