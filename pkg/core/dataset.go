package core

import (
	"time"
)

// Role is the part a dataset plays in an analysis.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// Dataset is one remote file artifact persisted to object storage.
type Dataset struct {
	ID              uint   `gorm:"primaryKey"`
	GalaxyID        string `gorm:"size:256;not null;index;uniqueIndex:idx_datasets_history_galaxy"`
	HistoryID       uint   `gorm:"not null;index;uniqueIndex:idx_datasets_history_galaxy"`
	OwnerID         string `gorm:"size:36;not null;index"`
	Name            string `gorm:"size:256;not null"`
	StorageKey      string `gorm:"size:512;not null"`
	StorageObjectID string `gorm:"size:36;not null;index"`
	UUID            string `gorm:"size:36;not null;uniqueIndex"`
	Extension       string `gorm:"size:100;not null"`
	DataLines       *int
	MiscBlurb       string    `gorm:"size:512"`
	FileSize        int64     `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`

	History *History `gorm:"constraint:OnDelete:CASCADE"`
}

// AnalysisInput marks a dataset as the input of an analysis. A dataset is the
// input record at most once.
type AnalysisInput struct {
	ID         uint         `gorm:"primaryKey"`
	State      DatasetState `gorm:"size:20;not null"`
	DatasetID  uint         `gorm:"not null;uniqueIndex"`
	AnalysisID uint         `gorm:"not null;index"`

	Dataset  *Dataset  `gorm:"constraint:OnDelete:CASCADE"`
	Analysis *Analysis `gorm:"constraint:OnDelete:CASCADE"`
}

// AnalysisOutput marks a dataset as produced by a job of an analysis.
type AnalysisOutput struct {
	ID         uint         `gorm:"primaryKey"`
	State      DatasetState `gorm:"size:20;not null"`
	DatasetID  uint         `gorm:"not null;index;uniqueIndex:idx_outputs_dataset_job"`
	AnalysisID uint         `gorm:"not null;index"`
	JobID      uint         `gorm:"not null;index;uniqueIndex:idx_outputs_dataset_job"`

	Dataset  *Dataset  `gorm:"constraint:OnDelete:CASCADE"`
	Analysis *Analysis `gorm:"constraint:OnDelete:CASCADE"`
	Job      *Job      `gorm:"constraint:OnDelete:CASCADE"`
	Tags     []Tag     `gorm:"many2many:analysis_output_tags;"`
}

// Tag is a label attached to output datasets by the remote.
type Tag struct {
	ID    uint   `gorm:"primaryKey"`
	Label string `gorm:"size:75;not null;uniqueIndex"`
}

// AnalysisOutputTag is the join row between outputs and tags.
type AnalysisOutputTag struct {
	AnalysisOutputID uint `gorm:"primaryKey"`
	TagID            uint `gorm:"primaryKey"`
}
