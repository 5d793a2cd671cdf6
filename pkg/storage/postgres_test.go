package storage

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// skipIfNotPostgres skips the test when TEST_DATABASE_URL is not set.
func skipIfNotPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL-specific test")
	}
}

func TestNewGormStorage_IsNotSQLite_PostgreSQL(t *testing.T) {
	skipIfNotPostgres(t)

	s := newTestStorage(t)
	assert.False(t, s.IsSQLite())
}

func TestUpsertJob_PostgreSQL_ConcurrentSameJob(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  []uint
		errs []error
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobRunning, OwnerID: testOwner}
			err := s.UpsertJob(ctx, job)
			mu.Lock()
			defer mu.Unlock()
			ids = append(ids, job.ID)
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, id := range ids {
		assert.Equal(t, ids[0], id, "every upsert resolves to the same row")
	}

	jobs, err := s.ListJobs(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestUpsertTags_PostgreSQL_Concurrent(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertTags(ctx, []string{"name:bam", "name:vcf"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, s.DB().Model(&core.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDeleteHistory_PostgreSQL_CascadesToAnalysis(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	require.NoError(t, s.DB().Delete(&core.History{}, f.history.ID).Error)

	a, err := s.GetAnalysis(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Nil(t, a)
}
