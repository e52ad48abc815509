package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	pkgch "PairDesk/pkg/clickhouse"
	applogger "PairDesk/pkg/logger"
)

const insertChunkSize = 2000

// CHPriceStore archives daily closes in ClickHouse.
type CHPriceStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
	now      func() time.Time
}

func NewCHPriceStore(ch *pkgch.Client, database string) *CHPriceStore {
	return &CHPriceStore{db: ch.DB(), database: database, table: database + ".closes", now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the DDL for the archive table.
func (s *CHPriceStore) Schema() []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + s.database,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (symbol String, interval LowCardinality(String), t DateTime, c Float64) "+
			"ENGINE=ReplacingMergeTree ORDER BY (symbol, interval, t)", s.table),
	}
}

func (s *CHPriceStore) Init(ctx context.Context) error {
	for _, stmt := range s.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init price store: %w", err)
		}
	}
	return nil
}

func (s *CHPriceStore) StoreSeries(ctx context.Context, series models.PriceSeries) error {
	start := time.Now()
	for _, stmt := range insertStatements(s.table, series, insertChunkSize) {
		if _, err := s.db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_series error",
					applogger.String("table", s.table),
					applogger.String("symbol", series.Symbol),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store series: %w", err)
		}
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_series ok",
			applogger.String("symbol", series.Symbol),
			applogger.Int("rows", series.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

type statement struct {
	query string
	args  []interface{}
}

func insertStatements(table string, series models.PriceSeries, chunk int) []statement {
	var out []statement
	pts := series.Points
	for start := 0; start < len(pts); start += chunk {
		end := start + chunk
		if end > len(pts) {
			end = len(pts)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, p := range pts[start:end] {
			if p.Close <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, series.Symbol, series.Interval, p.Time.UTC(), p.Close)
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, statement{
			query: fmt.Sprintf("INSERT INTO %s (symbol, interval, t, c) VALUES %s", table, strings.Join(values, ",")),
			args:  args,
		})
	}
	return out
}

func (s *CHPriceStore) LoadSeries(ctx context.Context, symbol string, period drepo.Period, interval drepo.Interval) (models.PriceSeries, error) {
	const qtpl = `
        SELECT t, c
        FROM %s FINAL
        WHERE symbol = ? AND interval = ? AND t >= ?
        ORDER BY t ASC
    `
	from := period.Start(s.now().UTC())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(interval), from)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := models.PriceSeries{Symbol: symbol, Period: string(period), Interval: string(interval)}
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Time, &p.Close); err != nil {
			return models.PriceSeries{}, fmt.Errorf("scan close: %w", err)
		}
		p.Time = p.Time.UTC()
		out.Points = append(out.Points, p)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPriceStore) Close() error {
	return nil // Managed by pkg
}

var _ drepo.PriceStore = (*CHPriceStore)(nil)
