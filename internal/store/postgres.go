package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/probelab/discovery-cli/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store against a pgx connection pool.
type PostgresStore struct {
	pool pgPool
}

// NewPostgres connects to the given DSN and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS startups (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	profile_url TEXT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS problems (
	id         UUID PRIMARY KEY,
	startup_id UUID NOT NULL REFERENCES startups(id),
	statement  TEXT NOT NULL,
	category   TEXT NOT NULL,
	severity   TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	data       JSONB NOT NULL,
	embedding  JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signals (
	id          UUID PRIMARY KEY,
	signal_type TEXT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clusters (
	id          UUID PRIMARY KEY,
	theme       TEXT NOT NULL,
	size        INTEGER NOT NULL,
	problem_ids JSONB NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'idle',
	summary    JSONB,
	errors     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_startups_profile_url ON startups(LOWER(profile_url));
CREATE INDEX IF NOT EXISTS idx_problems_startup_id ON problems(startup_id);
CREATE INDEX IF NOT EXISTS idx_problems_category ON problems(category);
CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(signal_type);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateStartup(ctx context.Context, st model.Startup) (string, error) {
	id := uuid.New().String()
	st.ID = id

	data, err := json.Marshal(st)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal startup")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO startups (id, name, profile_url, data) VALUES ($1, $2, $3, $4)`,
		id, st.Name, st.ProfileURL, data,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert startup %s", st.Name)
	}
	return id, nil
}

func (s *PostgresStore) FindStartupByProfileURL(ctx context.Context, profileURL string) (*model.Startup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data FROM startups WHERE LOWER(profile_url) = LOWER($1)`,
		profileURL,
	)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find startup")
	}
	var st model.Startup
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal startup")
	}
	return &st, nil
}

func (s *PostgresStore) ListStartups(ctx context.Context, limit int) ([]model.Startup, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM startups ORDER BY created_at LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list startups")
	}
	defer rows.Close()

	var startups []model.Startup
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan startup")
		}
		var st model.Startup
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal startup")
		}
		startups = append(startups, st)
	}
	return startups, eris.Wrap(rows.Err(), "postgres: list startups iterate")
}

func (s *PostgresStore) CreateProblem(ctx context.Context, p model.Problem) (string, error) {
	id := uuid.New().String()
	p.ID = id

	data, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal problem")
	}
	var embedding []byte
	if len(p.Embedding) > 0 {
		embedding, err = json.Marshal(p.Embedding)
		if err != nil {
			return "", eris.Wrap(err, "postgres: marshal embedding")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO problems (id, startup_id, statement, category, severity, confidence, data, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, p.StartupID, p.Statement, string(p.Category), string(p.Severity), p.Confidence, data, embedding,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert problem")
	}
	return id, nil
}

func (s *PostgresStore) CreateSignal(ctx context.Context, sig model.ImplicitSignal) (string, error) {
	id := uuid.New().String()
	sig.ID = id

	data, err := json.Marshal(sig)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal signal")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO signals (id, signal_type, data) VALUES ($1, $2, $3)`,
		id, SignalTypeCode(sig.Type), data,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert signal")
	}
	return id, nil
}

func (s *PostgresStore) CreateCluster(ctx context.Context, c model.ProblemCluster, problemIDs []string) (string, error) {
	id := uuid.New().String()
	c.ID = id

	data, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal cluster")
	}
	ids, err := json.Marshal(problemIDs)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal problem ids")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO clusters (id, theme, size, problem_ids, data) VALUES ($1, $2, $3, $4, $5)`,
		id, c.Theme, c.Size, ids, data,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert cluster")
	}
	return id, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusIdle), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusIdle, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.Summary, errs []model.ErrorRecord) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal errors")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, errors = $3, updated_at = now() WHERE id = $4`,
		string(status), summaryJSON, errsJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, summary, errors, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		var summary, errsJSON []byte
		if err := rows.Scan(&r.ID, &status, &summary, &errsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if len(summary) > 0 && string(summary) != "null" {
			var sum model.Summary
			if err := json.Unmarshal(summary, &sum); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
			r.Summary = &sum
		}
		if len(errsJSON) > 0 {
			if err := json.Unmarshal(errsJSON, &r.Errors); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal errors")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
