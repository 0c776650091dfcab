// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-scout/internal/crawl"
	"github.com/pdiddy/paper-scout/pkg/types"
)

const defaultListLimit = 20

// Archive records finished runs and their accepted papers in SQLite. It is
// history only: a crawl never reads it.
type Archive struct {
	db *sql.DB
}

// RunInfo is one archived run.
type RunInfo struct {
	ID           int64         `json:"id" yaml:"id"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	ListingPages int           `json:"listing_pages" yaml:"listing_pages"`
	DetailPages  int           `json:"detail_pages" yaml:"detail_pages"`
	Failures     int           `json:"failures" yaml:"failures"`
	Irrelevant   int           `json:"irrelevant" yaml:"irrelevant"`
	Rejected     int           `json:"rejected" yaml:"rejected"`
	Accepted     int           `json:"accepted" yaml:"accepted"`
	Duration     time.Duration `json:"-" yaml:"-"`
}

// OpenArchive opens or creates the archive database at path and creates
// the schema if it does not exist.
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			listing_pages INTEGER,
			detail_pages INTEGER,
			failures INTEGER,
			irrelevant INTEGER,
			rejected INTEGER,
			accepted INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT,
			pdf_link TEXT NOT NULL,
			detail_url TEXT,
			evaluation TEXT,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores res as a new run and returns its id.
func (a *Archive) SaveRun(ctx context.Context, res crawl.Result) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s := res.Summary
	out, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, listing_pages, detail_pages, failures, irrelevant, rejected, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StartedAt.UTC().Format(time.RFC3339Nano),
		s.FinishedAt.UTC().Format(time.RFC3339Nano),
		s.ListingPages, s.DetailPages, s.Failures(), s.Irrelevant, s.Rejected, len(res.Records),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (run_id, position, title, authors, abstract, pdf_link, detail_url, evaluation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing paper insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range normalize(res.Records) {
		authors, err := json.Marshal(r.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, i, r.Title, string(authors), r.Abstract, r.PDFLink, r.DetailURL, r.EvaluationNote); err != nil {
			return 0, fmt.Errorf("inserting paper %q: %w", r.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// means 20.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, listing_pages, detail_pages, failures, irrelevant, rejected, accepted
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var ri RunInfo
		var started, finished string
		if err := rows.Scan(&ri.ID, &started, &finished, &ri.ListingPages, &ri.DetailPages,
			&ri.Failures, &ri.Irrelevant, &ri.Rejected, &ri.Accepted); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ri.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		ri.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		ri.Duration = ri.FinishedAt.Sub(ri.StartedAt)
		runs = append(runs, ri)
	}
	return runs, rows.Err()
}

// RunPapers returns the papers archived for runID in report order.
func (a *Archive) RunPapers(ctx context.Context, runID int64) ([]types.PaperRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT title, authors, abstract, pdf_link, detail_url, evaluation
		 FROM papers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	papers := []types.PaperRecord{}
	for rows.Next() {
		var r types.PaperRecord
		var authors string
		if err := rows.Scan(&r.Title, &authors, &r.Abstract, &r.PDFLink, &r.DetailURL, &r.EvaluationNote); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
			return nil, fmt.Errorf("decoding authors for %q: %w", r.Title, err)
		}
		papers = append(papers, r)
	}
	return papers, rows.Err()
}
