package eval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// Run is one stored evaluation summary.
type Run struct {
	ID           int64
	Label        string
	Order        int
	Methods      int
	MeanAccuracy float64
	Perplexity   float64
	Scored       int
	Skipped      int
	CreatedAt    time.Time
}

// Store persists evaluation reports in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the results database at path and applies the schema.
// ":memory:" gives a private in-memory store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results db: %w", err)
	}
	// one connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate creates the results tables when missing. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	schema := []string{
		// runs: one row per evaluated model
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			order_n INTEGER NOT NULL,
			methods INTEGER NOT NULL,
			mean_accuracy REAL,
			perplexity REAL,
			scored INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		// records: per held-out method, tokens stored as JSON arrays
		`CREATE TABLE IF NOT EXISTS records (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			actual TEXT NOT NULL,
			predicted TEXT NOT NULL,
			accuracy REAL NOT NULL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS runs_created_idx ON runs(created_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration statement: %w", err)
		}
	}
	return nil
}

// nullable maps NaN to SQL NULL.
func nullable(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// SaveReport stores the report and its records in one transaction and returns the run ID.
func (s *Store) SaveReport(ctx context.Context, r *Report, label string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs(label, order_n, methods, mean_accuracy, perplexity, scored, skipped, created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		label, r.Order, len(r.Records), nullable(r.MeanAccuracy), nullable(r.Perplexity),
		r.Scored, r.Skipped, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records(run_id, position, actual, predicted, accuracy) VALUES(?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, rec := range r.Records {
		actual, err := json.Marshal(rec.Actual)
		if err != nil {
			return 0, err
		}
		predicted, err := json.Marshal(rec.Predicted)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, runID, i, string(actual), string(predicted), rec.Accuracy); err != nil {
			return 0, fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Debugf("Stored run %d (%s) with %d records", runID, label, len(r.Records))
	return runID, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, order_n, methods, mean_accuracy, perplexity, scored, skipped, created_at
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			acc, ppl  sql.NullFloat64
			createdMs int64
		)
		if err := rows.Scan(&run.ID, &run.Label, &run.Order, &run.Methods, &acc, &ppl,
			&run.Scored, &run.Skipped, &createdMs); err != nil {
			return nil, err
		}
		run.MeanAccuracy = fromNullable(acc)
		run.Perplexity = fromNullable(ppl)
		run.CreatedAt = time.UnixMilli(createdMs)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the records of one run in their original order.
func (s *Store) Records(ctx context.Context, runID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT actual, predicted, accuracy FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec               Record
			actual, predicted string
		)
		if err := rows.Scan(&actual, &predicted, &rec.Accuracy); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(actual), &rec.Actual); err != nil {
			return nil, fmt.Errorf("decoding record tokens: %w", err)
		}
		if err := json.Unmarshal([]byte(predicted), &rec.Predicted); err != nil {
			return nil, fmt.Errorf("decoding record tokens: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
