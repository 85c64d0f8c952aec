package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/leadsync-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func sampleRow() *model.LeadRow {
	name := "Grace Lam"
	role := "Director of Care"
	return &model.LeadRow{
		LeadID:   "lead-001",
		Name:     "Maple Grove Retirement",
		Address:  "88 Birch Ave, Markham",
		Source:   "dossier_pipeline",
		Score:    52,
		Priority: model.PriorityUrgent,
		DecisionMakers: []model.DecisionMaker{
			{"name": "Grace Lam", "title": "Director of Care"},
		},
		ContactName:          &name,
		ContactRole:          &role,
		ChineseRepCandidate:  true,
		ChineseRepConfidence: model.ConfidenceHigh,
		ChineseRepReasons:    []model.Reason{{"detail": "Grace Lam speaks Cantonese"}},
	}
}

func TestUpsertLead(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.UpsertLead(context.Background(), sampleRow())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadFields(t *testing.T) {
	st, mock := newMockStore(t)

	// Columns are applied in sorted order regardless of map iteration.
	mock.ExpectExec(`UPDATE leads SET contact_name = \$1, contact_role = \$2, updated_at = now\(\) WHERE id = \$3`).
		WithArgs("Wei Zhang", "Administrator", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := st.UpdateLeadFields(context.Background(), 7, map[string]any{
		"contact_role": "Administrator",
		"contact_name": "Wei Zhang",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadFieldsRejectsUnknownColumn(t *testing.T) {
	st, _ := newMockStore(t)

	err := st.UpdateLeadFields(context.Background(), 7, map[string]any{"score": 99})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not updatable")
}

func TestUpdateLeadFieldsNoFieldsIsNoOp(t *testing.T) {
	st, mock := newMockStore(t)

	err := st.UpdateLeadFields(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadFieldsMissingRow(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE leads SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateLeadFields(context.Background(), 404, map[string]any{"contact_name": "X Y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListLeadsCandidatesOnly(t *testing.T) {
	st, mock := newMockStore(t)

	cols := append([]string{"id"}, leadColumns...)
	rows := pgxmock.NewRows(cols).AddRow(
		int64(1),
		"lead-001", "Maple Grove Retirement", "88 Birch Ave, Markham", "", "", "", "dossier_pipeline",
		52, "urgent",
		(*int)(nil), (*int)(nil), (*int)(nil), (*int)(nil), (*int)(nil), (*int)(nil),
		"",
		[]byte(`[{"name":"Grace Lam","title":"Director of Care"}]`),
		[]byte(`[]`), []byte(`[]`), []byte(`[]`), []byte(`[]`), []byte(`[]`), []byte(nil),
		(*string)(nil), (*string)(nil), (*string)(nil),
		[]byte(`["Cantonese"]`),
		true, model.ConfidenceHigh, []byte(`[{"detail":"Grace Lam speaks Cantonese"}]`),
		(*float64)(nil), (*float64)(nil),
	)

	mock.ExpectQuery(`SELECT id, .+ FROM leads WHERE chinese_rep_candidate = TRUE ORDER BY id LIMIT 5`).
		WillReturnRows(rows)

	leads, err := st.ListLeads(context.Background(), LeadFilter{CandidatesOnly: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead-001", leads[0].LeadID)
	assert.Equal(t, "Grace Lam", leads[0].DecisionMakers[0].Name())
	assert.Equal(t, []string{"Cantonese"}, leads[0].LanguagesSupported)
	assert.True(t, leads[0].ChineseRepCandidate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSyncRun(t *testing.T) {
	st, mock := newMockStore(t)

	started := time.Now().Add(-time.Minute)
	done := time.Now()
	mock.ExpectExec("INSERT INTO sync_runs").
		WithArgs("run-1", RunKindPolish, started, done, 10, 4, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.RecordSyncRun(context.Background(), SyncRun{
		ID: "run-1", Kind: RunKindPolish,
		StartedAt: started, CompletedAt: done,
		Processed: 10, Updated: 4, Errored: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
