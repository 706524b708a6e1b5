package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/probelab/discovery-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS startups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	profile_url TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS problems (
	id         TEXT PRIMARY KEY,
	startup_id TEXT NOT NULL REFERENCES startups(id),
	statement  TEXT NOT NULL,
	category   TEXT NOT NULL,
	severity   TEXT NOT NULL,
	confidence REAL NOT NULL,
	data       TEXT NOT NULL,
	embedding  TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	signal_type TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clusters (
	id          TEXT PRIMARY KEY,
	theme       TEXT NOT NULL,
	size        INTEGER NOT NULL,
	problem_ids TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'idle',
	summary    TEXT,
	errors     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_startups_profile_url ON startups(profile_url COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_problems_startup_id ON problems(startup_id);
CREATE INDEX IF NOT EXISTS idx_problems_category ON problems(category);
CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(signal_type);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateStartup(ctx context.Context, st model.Startup) (string, error) {
	id := uuid.New().String()
	st.ID = id

	data, err := json.Marshal(st)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal startup")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO startups (id, name, profile_url, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, st.Name, st.ProfileURL, string(data), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert startup %s", st.Name)
	}
	return id, nil
}

func (s *SQLiteStore) FindStartupByProfileURL(ctx context.Context, profileURL string) (*model.Startup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM startups WHERE profile_url = ? COLLATE NOCASE`,
		profileURL,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find startup")
	}
	var st model.Startup
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal startup")
	}
	return &st, nil
}

func (s *SQLiteStore) ListStartups(ctx context.Context, limit int) ([]model.Startup, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM startups ORDER BY created_at LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list startups")
	}
	defer rows.Close()

	var startups []model.Startup
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan startup")
		}
		var st model.Startup
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal startup")
		}
		startups = append(startups, st)
	}
	return startups, eris.Wrap(rows.Err(), "sqlite: list startups iterate")
}

func (s *SQLiteStore) CreateProblem(ctx context.Context, p model.Problem) (string, error) {
	id := uuid.New().String()
	p.ID = id

	data, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal problem")
	}
	var embedding any
	if len(p.Embedding) > 0 {
		embJSON, err := json.Marshal(p.Embedding)
		if err != nil {
			return "", eris.Wrap(err, "sqlite: marshal embedding")
		}
		embedding = string(embJSON)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO problems (id, startup_id, statement, category, severity, confidence, data, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.StartupID, p.Statement, string(p.Category), string(p.Severity), p.Confidence, string(data), embedding, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert problem")
	}
	return id, nil
}

func (s *SQLiteStore) CreateSignal(ctx context.Context, sig model.ImplicitSignal) (string, error) {
	id := uuid.New().String()
	sig.ID = id

	data, err := json.Marshal(sig)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal signal")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signals (id, signal_type, data, created_at) VALUES (?, ?, ?, ?)`,
		id, SignalTypeCode(sig.Type), string(data), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert signal")
	}
	return id, nil
}

func (s *SQLiteStore) CreateCluster(ctx context.Context, c model.ProblemCluster, problemIDs []string) (string, error) {
	id := uuid.New().String()
	c.ID = id

	data, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal cluster")
	}
	ids, err := json.Marshal(problemIDs)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal problem ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clusters (id, theme, size, problem_ids, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, c.Theme, c.Size, string(ids), string(data), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert cluster")
	}
	return id, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusIdle), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusIdle, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.Summary, errs []model.ErrorRecord) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal errors")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, errors = ?, updated_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), string(errsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, summary, errors, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		var summary, errsJSON sql.NullString
		if err := rows.Scan(&r.ID, &status, &summary, &errsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		if summary.Valid && summary.String != "null" {
			var sum model.Summary
			if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal summary")
			}
			r.Summary = &sum
		}
		if errsJSON.Valid {
			if err := json.Unmarshal([]byte(errsJSON.String), &r.Errors); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal errors")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
