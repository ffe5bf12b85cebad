package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

const defaultLedgerTable = "ledger_entries"

// CHLedgerStore implements LedgerStore backed by ClickHouse.
type CHLedgerStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

func NewCHLedgerStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHLedgerStore {
	return &CHLedgerStore{
		ch:       ch,
		db:       ch.DB(),
		database: database,
		table:    database + "." + defaultLedgerTable,
		l:        l,
	}
}

// Schema returns the idempotent DDL for the ledger table.
func (s *CHLedgerStore) Schema() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id          String,
            user_id     String,
            kind        LowCardinality(String),
            amount      Decimal(18, 2),
            date        Date,
            description String,
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (user_id, date, id)`, s.table),
	}
}

func (s *CHLedgerStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, s.Schema())
}

func (s *CHLedgerStore) StoreBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(entries); start += chunkSize {
		end := min(start+chunkSize, len(entries))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, e := range entries[start:end] {
			if e == nil {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, e.ID, e.UserID, string(e.Kind), e.Amount, e.Date, e.Description)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, user_id, kind, amount, date, description) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse ledger insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("insert ledger entries: %w", err)
		}
	}
	return nil
}

// monthlyTotalsQuery groups entries per calendar month, newest first.
func monthlyTotalsQuery(table string, bounded bool) string {
	where := "user_id = ?"
	if bounded {
		where += " AND date < ?"
	}
	return fmt.Sprintf(`
        SELECT toStartOfMonth(date) AS period,
               sumIf(amount, kind = 'income')  AS income,
               sumIf(amount, kind = 'expense') AS expenses
        FROM %s FINAL
        WHERE %s
        GROUP BY period
        ORDER BY period DESC
        LIMIT ?
    `, table, where)
}

func (s *CHLedgerStore) MonthlyTotals(ctx context.Context, userID string, n int, until time.Time) ([]models.MonthlyTotal, error) {
	start := time.Now()
	args := []interface{}{userID}
	if !until.IsZero() {
		args = append(args, until)
	}
	args = append(args, n)

	rows, err := s.db.QueryContext(ctx, monthlyTotalsQuery(s.table, !until.IsZero()), args...)
	if err != nil {
		s.l.Error("clickhouse monthly_totals query error",
			applogger.String("table", s.table),
			applogger.String("user_id", userID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := make([]models.MonthlyTotal, 0, n)
	for rows.Next() {
		var t models.MonthlyTotal
		if err := rows.Scan(&t.Period, &t.Income, &t.Expenses); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		t.Period = t.Period.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse monthly_totals ok",
		applogger.String("user_id", userID),
		applogger.Int("limit", n),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHLedgerStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHLedgerStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.LedgerStore = (*CHLedgerStore)(nil)
