package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/probelab/discovery-cli/internal/model"
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresCreateStartup(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec(`INSERT INTO startups`).
		WithArgs(pgxmock.AnyArg(), "Acme", "https://harmonic.ai/companies/acme", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateStartup(context.Background(), model.Startup{
		Name:       "Acme",
		ProfileURL: "https://harmonic.ai/companies/acme",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindStartupMissing(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM startups WHERE LOWER\(profile_url\)`).
		WithArgs("https://harmonic.ai/companies/nope").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	got, err := s.FindStartupByProfileURL(context.Background(), "https://harmonic.ai/companies/nope")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindStartup(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	data := []byte(`{"id":"abc","name":"Acme","profile_url":"https://harmonic.ai/companies/acme","funding_total":0,"funding_stage":"seed","founded_year":2023,"employees":{"min":1,"max":10}}`)
	mock.ExpectQuery(`SELECT data FROM startups`).
		WithArgs("https://harmonic.ai/companies/acme").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	got, err := s.FindStartupByProfileURL(context.Background(), "https://harmonic.ai/companies/acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Acme", got.Name)
	require.Equal(t, model.StageSeed, got.FundingStage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateSignalUsesTypeCode(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec(`INSERT INTO signals`).
		WithArgs(pgxmock.AnyArg(), "MIGRATION", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := s.CreateSignal(context.Background(), model.ImplicitSignal{
		Type:            model.SignalMigration,
		InferredProblem: "moving off a managed queue",
		Confidence:      0.8,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNotFound(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", model.RunStatusComplete, &model.Summary{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "status", "summary", "errors", "created_at", "updated_at"}).
		AddRow("r1", "complete", []byte(`{"problems":3,"signals":1,"clusters":1,"errors":0,"duration_ms":900}`), []byte(`[]`), now, now).
		AddRow("r2", "failed", []byte(nil), []byte(`[{"stage":"persist","message":"no startups","recoverable":false}]`), now, now)
	mock.ExpectQuery(`SELECT id, status, summary, errors, created_at, updated_at FROM runs`).
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.Equal(t, 3, runs[0].Summary.Problems)
	require.Nil(t, runs[1].Summary)
	require.Len(t, runs[1].Errors, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
