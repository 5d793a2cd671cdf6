package core

import (
	"time"
)

// Job mirrors one remote job discovered through an analysis' invocation.
type Job struct {
	ID         uint     `gorm:"primaryKey"`
	GalaxyID   string   `gorm:"size:256;not null;uniqueIndex:idx_jobs_galaxy_analysis"`
	AnalysisID uint     `gorm:"not null;index;uniqueIndex:idx_jobs_galaxy_analysis"`
	StepID     int      `gorm:"not null"`
	ToolID     string   `gorm:"size:256;not null"`
	State      JobState `gorm:"size:20;not null"`
	ExitCode   *int
	Stdout     string `gorm:"type:text"`
	Stderr     string `gorm:"type:text"`
	OwnerID    string `gorm:"size:36;not null;index"`
	IsSync     bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time

	Analysis *Analysis `gorm:"constraint:OnDelete:CASCADE"`
}
