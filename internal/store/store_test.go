package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(DialectSQLite, ":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// testDBs returns every backend available to the test run. PostgreSQL is
// used only when TALLY_TEST_POSTGRES_DSN is set.
func testDBs(t *testing.T) map[string]*DB {
	t.Helper()
	dbs := map[string]*DB{"sqlite": NewTestDB(t)}

	dsn := os.Getenv("TALLY_TEST_POSTGRES_DSN")
	if dsn == "" {
		return dbs
	}
	db, err := Open(DialectPostgres, dsn)
	require.NoError(t, err, "failed to open postgres test database")
	_, err = db.Exec(`TRUNCATE activity_log, tally_sheet_versions, tally_sheets, elections`)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	dbs["postgres"] = db
	return dbs
}

func seed(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	el := &election.Election{
		ID:       "el-2",
		Name:     "Colombo",
		ParentID: "el-1",
		Parties: []election.Party{
			{Name: "Party A", Symbol: "Elephant", Candidates: []election.Candidate{{ID: 1, Name: "One"}}},
		},
	}
	require.NoError(t, NewElectionRepository(db).Create(ctx, el))
	require.NoError(t, NewTallySheetRepository(db).CreateTallySheet(ctx, &tally.TallySheet{
		ID: "ts-1", Code: tally.CodeCE201PV, ElectionID: "el-2",
	}))
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"elections", "tally_sheets", "tally_sheet_versions", "activity_log", "schema_migrations"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	require.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &DB{dialect: DialectSQLite}
	require.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
}

func TestElectionRepository(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, db)
			repo := NewElectionRepository(db)

			el, err := repo.Get(ctx, "el-2")
			require.NoError(t, err)
			require.Equal(t, "el-1", el.ParentID)
			require.Len(t, el.Candidates(), 1)

			_, err = repo.Get(ctx, "nope")
			require.ErrorIs(t, err, repository.ErrNotFound)

			err = repo.Create(ctx, &election.Election{ID: "el-2", Name: "dup"})
			require.ErrorIs(t, err, repository.ErrAlreadyExists)
		})
	}
}

func TestTallySheetRepository(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, db)
			repo := NewTallySheetRepository(db)

			require.NoError(t, repo.CreateTallySheet(ctx, &tally.TallySheet{ID: "ts-2", Code: tally.CodePRE34CO, ElectionID: "el-2"}))
			sheets, err := repo.ListTallySheets(ctx, "el-2")
			require.NoError(t, err)
			require.Len(t, sheets, 2)

			sheet, err := repo.GetTallySheet(ctx, "ts-2")
			require.NoError(t, err)
			require.Equal(t, tally.CodePRE34CO, sheet.Code)
			require.Empty(t, sheet.LatestVersionID)

			_, err = repo.GetTallySheet(ctx, "ts-9")
			require.ErrorIs(t, err, repository.ErrNotFound)

			err = repo.CreateTallySheet(ctx, &tally.TallySheet{ID: "ts-3", Code: tally.CodePRE34CO, ElectionID: "el-9"})
			require.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestVersionRepository_SaveFetchSubmit(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, db)
			versions := NewVersionRepository(db)
			sheets := NewTallySheetRepository(db)

			payload := tally.Payload{
				Content: json.RawMessage(`[{"ballotBoxId":"B1","numberOfAPacketsFound":3,"numberOfPacketsInserted":3}]`),
				Summary: json.RawMessage(`{"situation":"Hall"}`),
			}
			v1, err := versions.SaveVersion(ctx, "ts-1", tally.CodeCE201PV, payload)
			require.NoError(t, err)
			require.NotEmpty(t, v1.ID)

			got, err := versions.FetchVersion(ctx, "ts-1", tally.CodeCE201PV, v1.ID)
			require.NoError(t, err)
			require.JSONEq(t, string(payload.Content), string(got.Content))
			require.JSONEq(t, string(payload.Summary), string(got.Summary))
			require.WithinDuration(t, v1.CreatedAt, got.CreatedAt, 0)

			v2, err := versions.SaveVersion(ctx, "ts-1", tally.CodeCE201PV, tally.Payload{Content: json.RawMessage(`[]`)})
			require.NoError(t, err)
			got, err = versions.FetchVersion(ctx, "ts-1", tally.CodeCE201PV, v2.ID)
			require.NoError(t, err)
			require.Empty(t, got.Summary)

			sheet, err := sheets.GetTallySheet(ctx, "ts-1")
			require.NoError(t, err)
			require.Equal(t, v2.ID, sheet.LatestVersionID)

			_, err = versions.SubmitSheet(ctx, "ts-1", v1.ID)
			require.ErrorIs(t, err, repository.ErrConflict)

			sub, err := versions.SubmitSheet(ctx, "ts-1", v2.ID)
			require.NoError(t, err)
			require.Equal(t, "el-2", sub.ElectionID)
			require.Equal(t, v2.ID, sub.VersionID)

			sheet, err = sheets.GetTallySheet(ctx, "ts-1")
			require.NoError(t, err)
			require.True(t, sheet.Submitted())

			_, err = versions.SaveVersion(ctx, "ts-1", tally.CodeCE201PV, payload)
			require.ErrorIs(t, err, repository.ErrConflict)
		})
	}
}

func TestVersionRepository_Errors(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	seed(t, db)
	versions := NewVersionRepository(db)

	_, err := versions.FetchVersion(ctx, "ts-1", tally.CodeCE201PV, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = versions.SaveVersion(ctx, "ts-9", tally.CodeCE201PV, tally.Payload{Content: json.RawMessage(`[]`)})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = versions.SaveVersion(ctx, "ts-1", tally.CodePRE34CO, tally.Payload{Content: json.RawMessage(`[]`)})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = versions.SaveVersion(ctx, "ts-1", tally.CodeCE201PV, tally.Payload{Content: json.RawMessage(`[`)})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = versions.SubmitSheet(ctx, "ts-1", "v-none")
	require.True(t, errors.Is(err, repository.ErrConflict))
}

func TestActivityRepository(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewActivityRepository(db)
			session := "sess-1"
			version := "v-1"

			require.NoError(t, repo.Log(ctx, &activity.Entry{TallySheetID: "ts-1", SessionID: &session, Type: activity.TypeSessionOpened, Summary: "opened"}))
			saved := &activity.Entry{TallySheetID: "ts-1", SessionID: &session, VersionID: &version, Type: activity.TypeVersionSaved, Summary: "saved"}
			require.NoError(t, repo.Log(ctx, saved))
			require.NotZero(t, saved.ID)
			require.NoError(t, repo.Log(ctx, &activity.Entry{TallySheetID: "ts-2", Type: activity.TypeLoadFailed, Summary: "other", Details: "timeout"}))

			entries, err := repo.List(ctx, activity.ListOptions{TallySheetID: "ts-1"})
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, activity.TypeVersionSaved, entries[0].Type)
			require.Equal(t, "v-1", *entries[0].VersionID)
			require.Nil(t, entries[1].VersionID)

			typ := activity.TypeSessionOpened
			entries, err = repo.List(ctx, activity.ListOptions{TallySheetID: "ts-1", Type: &typ, Limit: 5})
			require.NoError(t, err)
			require.Len(t, entries, 1)

			entries, err = repo.List(ctx, activity.ListOptions{TallySheetID: "ts-1", Limit: 1, Offset: 1})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.Equal(t, activity.TypeSessionOpened, entries[0].Type)
		})
	}
}
