package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StreetPull/internal/domain/models"
)

// NewsSchema returns the DDL for the news archive table.
func NewsSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id String,
		ticker String,
		headline String,
		story_time DateTime64(3, 'UTC'),
		primary_symbols Array(String),
		symbols Array(String),
		subjects Array(String),
		categories Array(String),
		body String,
		url String,
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	PARTITION BY toYYYYMM(story_time)
	ORDER BY (ticker, story_time, id)`, table)}
}

// ClickHouseArchive stores fetched news in ClickHouse for long-term querying.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates the ClickHouse-backed archive.
func NewClickHouseArchive(db *sql.DB, table string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) StoreBatch(ctx context.Context, symbol string, items []models.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	// Multi-row VALUES insert to reduce round-trips. News batches are small
	// compared to tick data but the same chunking keeps worst cases bounded.
	const chunkSize = 2000
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, it := range items[start:end] {
			if it.ID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				it.ID,
				symbol,
				it.Headline,
				it.StoryTime,
				it.PrimarySymbols,
				it.Symbols,
				it.Subjects,
				it.Categories,
				it.Body,
				it.URL,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (id, ticker, headline, story_time, primary_symbols, symbols, subjects, categories, body, url) VALUES %s",
			a.table, strings.Join(values, ","),
		)
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (a *ClickHouseArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.NewsItem, error) {
	q := fmt.Sprintf(
		"SELECT id, headline, story_time, primary_symbols, symbols, subjects, categories, body, url FROM %s WHERE ticker = ? AND story_time >= ? AND story_time <= ? ORDER BY story_time DESC LIMIT ?",
		a.table,
	)
	rows, err := a.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.NewsItem
	for rows.Next() {
		var it models.NewsItem
		if err := rows.Scan(
			&it.ID,
			&it.Headline,
			&it.StoryTime,
			&it.PrimarySymbols,
			&it.Symbols,
			&it.Subjects,
			&it.Categories,
			&it.Body,
			&it.URL,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // connection owned by pkg/clickhouse client
}
