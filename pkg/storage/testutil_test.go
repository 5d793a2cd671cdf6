package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

const testOwner = "3f1d2c1e-0000-4000-8000-000000000001"

// openTestDB opens a database for tests.
// When TEST_DATABASE_URL is set it connects to PostgreSQL; otherwise it
// opens a fresh in-memory SQLite instance on a single connection.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err, "open postgres test db")

		sqlDB, err := db.DB()
		require.NoError(t, err, "get underlying sql.DB")
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(1)

		// Clean before AND after to ensure test isolation.
		cleanupPostgresDB(t, db)
		t.Cleanup(func() {
			cleanupPostgresDB(t, db)
			_ = sqlDB.Close()
		})
		return db
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

// cleanupPostgresDB deletes all rows so tests are isolated without a fresh
// database per test.
func cleanupPostgresDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	// Children first.
	tables := []string{
		"analysis_output_tags", "tags", "analysis_outputs", "analysis_inputs",
		"jobs", "analyses", "datasets", "histories", "workflows",
	}
	for _, tbl := range tables {
		db.Exec("DELETE FROM " + tbl)
	}
}

// newTestStorage returns a migrated storage.
func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()
	s := NewGormStorage(openTestDB(t))
	require.NoError(t, s.Migrate(context.Background()), "migrate schema")
	return s
}

// fixture is a workflow, history and analysis owned by testOwner.
type fixture struct {
	workflow *core.Workflow
	history  *core.History
	analysis *core.Analysis
}

func seedAnalysis(t *testing.T, s *GormStorage, galaxyID string) fixture {
	t.Helper()
	ctx := context.Background()

	wf := &core.Workflow{GalaxyID: "wf-" + galaxyID, Name: "variant calling", OwnerID: testOwner}
	require.NoError(t, s.CreateWorkflow(ctx, wf))

	h := &core.History{GalaxyID: "hist-" + galaxyID, Name: "run " + galaxyID, State: core.HistoryQueued, OwnerID: testOwner}
	require.NoError(t, s.CreateHistory(ctx, h))

	a := &core.Analysis{
		Name:       "analysis " + galaxyID,
		State:      core.InvocationNew,
		Parameters: datatypes.JSON(`{"threshold": 5}`),
		OwnerID:    testOwner,
		HistoryID:  h.ID,
		WorkflowID: wf.ID,
		GalaxyID:   galaxyID,
		Invocation: datatypes.NewJSONType(core.InvocationDescriptor{ID: galaxyID, State: core.InvocationNew}),
	}
	require.NoError(t, s.CreateAnalysis(ctx, a))
	return fixture{workflow: wf, history: h, analysis: a}
}

func newDataset(historyID uint, galaxyID, uuid string) *core.Dataset {
	return &core.Dataset{
		GalaxyID:        galaxyID,
		HistoryID:       historyID,
		OwnerID:         testOwner,
		Name:            galaxyID + ".fastq",
		StorageKey:      "k/" + galaxyID,
		StorageObjectID: "obj-" + galaxyID,
		UUID:            uuid,
		Extension:       "fastqsanger",
	}
}
