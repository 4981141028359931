// Package warehouse persists pipeline runs to a local SQLite database so
// past reports stay queryable after the files leave the reports directory.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"swapsum/internal/config"
	"swapsum/internal/dataprocessing"
	"swapsum/pkg/contracts/domain"
)

// Warehouse wraps the SQLite connection used for run history.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

// RunInfo is one row of the run history listing.
type RunInfo struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	ClientCount int       `json:"client_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open creates the database file if needed and ensures the schema exists.
func Open(cfg config.WarehouseConfig, logger *slog.Logger) (*Warehouse, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create warehouse directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse database: %w", err)
	}

	w := &Warehouse{
		db:     db,
		logger: logger.With(slog.String("component", "warehouse")),
	}
	if err := w.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Warehouse) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS report_runs (
			id TEXT PRIMARY KEY,
			source TEXT,
			record_count INTEGER,
			client_count INTEGER,
			dropped_missing_client INTEGER,
			dropped_missing_user INTEGER,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS exchange_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			client TEXT,
			user TEXT,
			manufacturer TEXT,
			battery REAL,
			vehicle TEXT,
			exchanged_at DATETIME,
			source_entity TEXT,
			source_group TEXT,
			classification TEXT,
			duplicate INTEGER,
			self_exchange INTEGER,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS summary_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			client TEXT,
			user TEXT,
			manufacturer TEXT,
			in_spec INTEGER,
			out_of_spec INTEGER,
			total INTEGER,
			duplicate_excluded INTEGER,
			created_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_records_run ON exchange_records(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_summary_rows_run ON summary_rows(run_id);`,
	}

	for _, stmt := range statements {
		if _, err := w.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create warehouse schema: %w", err)
		}
	}
	return nil
}

// StoreRun persists one pipeline run: the run header, every annotated
// record, and the per-user summary rows. All writes happen in a single
// transaction so a failed upload leaves no partial run behind.
func (w *Warehouse) StoreRun(ctx context.Context, runID, source string, records []domain.AnnotatedRecord, result *domain.AggregationResult) error {
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin warehouse transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO report_runs (id, source, record_count, client_count, dropped_missing_client, dropped_missing_user, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, source, result.RecordCount, len(result.Clients),
		result.DroppedMissingClient, result.DroppedMissingUser, now)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	if err := w.storeRecords(ctx, tx, runID, records, now); err != nil {
		return err
	}
	if err := w.storeSummaries(ctx, tx, runID, result, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}

	w.logger.InfoContext(ctx, "pipeline run stored",
		slog.String("run_id", runID),
		slog.Int("records", len(records)),
		slog.Int("clients", len(result.Clients)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (w *Warehouse) storeRecords(ctx context.Context, tx *sql.Tx, runID string, records []domain.AnnotatedRecord, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exchange_records
		 (run_id, client, user, manufacturer, battery, vehicle, exchanged_at, source_entity, source_group, classification, duplicate, self_exchange, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]

		var battery sql.NullFloat64
		if rec.Battery != nil {
			battery = sql.NullFloat64{Float64: *rec.Battery, Valid: true}
		}
		var exchangedAt sql.NullTime
		if rec.TimeValid {
			exchangedAt = sql.NullTime{Time: rec.ExchangedAt, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			runID, rec.Client, rec.User, rec.Manufacturer, battery, rec.Vehicle,
			exchangedAt, rec.SourceEntity, rec.SourceGroup,
			string(rec.Classification), rec.Duplicate, rec.SelfExchange, now)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Warehouse) storeSummaries(ctx context.Context, tx *sql.Tx, runID string, result *domain.AggregationResult, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summary_rows
		 (run_id, client, user, manufacturer, in_spec, out_of_spec, total, duplicate_excluded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert: %w", err)
	}
	defer stmt.Close()

	for _, client := range result.Clients {
		table := result.Summaries[client]
		for _, row := range table.Rows {
			for _, maker := range dataprocessing.Manufacturers {
				counts := row.Manufacturers[maker]
				_, err := stmt.ExecContext(ctx,
					runID, client, row.User, maker,
					counts.InSpec, counts.OutOfSpec, counts.Total, counts.DupExcluded, now)
				if err != nil {
					return fmt.Errorf("failed to insert summary row for %q/%q: %w", client, row.User, err)
				}
			}
		}
	}
	return nil
}

// ListRuns returns run headers, newest first.
func (w *Warehouse) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, source, record_count, client_count, created_at
		 FROM report_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Source, &info.RecordCount, &info.ClientCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// RunRecordCount returns how many records a stored run holds. Used by
// health checks and tests to confirm a run landed completely.
func (w *Warehouse) RunRecordCount(ctx context.Context, runID string) (int, error) {
	var count int
	err := w.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange_records WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for run %s: %w", runID, err)
	}
	return count, nil
}

// Close releases the underlying database handle.
func (w *Warehouse) Close() error {
	return w.db.Close()
}
