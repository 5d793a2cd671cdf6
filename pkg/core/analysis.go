package core

import (
	"time"

	"gorm.io/datatypes"
)

// Workflow is a workflow definition known to the remote server.
type Workflow struct {
	ID        uint      `gorm:"primaryKey"`
	GalaxyID  string    `gorm:"size:256;not null;index"`
	Name      string    `gorm:"size:256;not null"`
	OwnerID   string    `gorm:"size:36;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Analysis mirrors one remote workflow invocation.
type Analysis struct {
	ID         uint                                     `gorm:"primaryKey"`
	Name       string                                   `gorm:"size:256;not null"`
	State      InvocationState                          `gorm:"size:20;not null"`
	Parameters datatypes.JSON                           `gorm:"not null"`
	Datamap    datatypes.JSON                           `gorm:"not null"`
	Invocation datatypes.JSONType[InvocationDescriptor] `gorm:"not null"` // last fetched descriptor
	OwnerID    string                                   `gorm:"size:36;not null;index"`
	HistoryID  uint                                     `gorm:"not null;uniqueIndex"`
	WorkflowID uint                                     `gorm:"not null;index"`
	GalaxyID   string                                   `gorm:"size:256;not null;index"`
	Stdout     string                                   `gorm:"type:text"`
	Stderr     string                                   `gorm:"type:text"`
	IsSync     bool                                     `gorm:"not null;default:false"`
	CreatedAt  time.Time                                `gorm:"autoCreateTime"`

	History  *History  `gorm:"constraint:OnDelete:CASCADE"`
	Workflow *Workflow `gorm:"constraint:OnDelete:RESTRICT"`
}

// History mirrors one remote history, the workspace an invocation runs in.
type History struct {
	ID        uint         `gorm:"primaryKey"`
	Name      string       `gorm:"size:256;not null"`
	GalaxyID  string       `gorm:"size:256;not null;index"`
	State     HistoryState `gorm:"size:20;not null"`
	OwnerID   string       `gorm:"size:36;not null;index"`
	IsDeleted bool         `gorm:"not null;default:false"`
	IsSync    bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
}

// WorkflowInput is one entry of the inputs map passed at submission, keyed by
// workflow step. DBID is the local dataset id and is never sent to the remote.
type WorkflowInput struct {
	ID   string `json:"id"`
	Src  string `json:"src"`
	DBID uint   `json:"dbid,omitempty"`
}
