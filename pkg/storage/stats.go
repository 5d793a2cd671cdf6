package storage

import (
	"context"
	"time"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// OwnerStats summarizes the mirror of one owner.
type OwnerStats struct {
	OwnerID          string
	AnalysesByState  map[core.InvocationState]int64
	JobsByState      map[core.JobState]int64
	UnsyncedAnalyses int64
	UnsyncedJobs     int64
}

// GetOwnerStats returns per-state analysis and job counts for an owner.
func (s *GormStorage) GetOwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	type row struct {
		State  string
		IsSync bool
		Count  int64
	}
	db := s.db.WithContext(ctx)
	stats := &OwnerStats{
		OwnerID:         ownerID,
		AnalysesByState: make(map[core.InvocationState]int64),
		JobsByState:     make(map[core.JobState]int64),
	}

	var analyses []row
	err := db.Model(&core.Analysis{}).
		Select("state, is_sync, count(*) as count").
		Where("owner_id = ?", ownerID).
		Group("state, is_sync").
		Find(&analyses).Error
	if err != nil {
		return nil, wrapErr("select analysis stats", ownerID, err)
	}
	for _, r := range analyses {
		stats.AnalysesByState[core.InvocationState(r.State)] += r.Count
		if !r.IsSync {
			stats.UnsyncedAnalyses += r.Count
		}
	}

	var jobs []row
	err = db.Model(&core.Job{}).
		Select("state, is_sync, count(*) as count").
		Where("owner_id = ?", ownerID).
		Group("state, is_sync").
		Find(&jobs).Error
	if err != nil {
		return nil, wrapErr("select job stats", ownerID, err)
	}
	for _, r := range jobs {
		stats.JobsByState[core.JobState(r.State)] += r.Count
		if !r.IsSync {
			stats.UnsyncedJobs += r.Count
		}
	}
	return stats, nil
}

// AnalysisFilter narrows SearchAnalyses.
type AnalysisFilter struct {
	OwnerID      string
	State        core.InvocationState
	UnsyncedOnly bool
	Search       string // substring of the name or remote id
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// SearchAnalyses returns analyses matching the filter with pagination and
// the total count before pagination.
func (s *GormStorage) SearchAnalyses(ctx context.Context, filter AnalysisFilter) ([]*core.Analysis, int64, error) {
	q := s.db.WithContext(ctx).Model(&core.Analysis{}).Where("owner_id = ?", filter.OwnerID)

	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.UnsyncedOnly {
		q = q.Where("is_sync = ?", false)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR galaxy_id LIKE ?", search, search)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count analyses", filter.OwnerID, err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var list []*core.Analysis
	err := q.Order("created_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, wrapErr("search analyses", filter.OwnerID, err)
	}
	return list, total, nil
}
