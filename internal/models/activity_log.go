package models

import (
	"time"
)

// SystemActor is the actor id used for events not caused by a user
const SystemActor = "SYSTEM"

// ActivityLog is an append-only audit record. Rows are never updated or deleted.
type ActivityLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ActorID       string    `gorm:"not null;size:255;index" json:"actor_id"`
	Action        string    `gorm:"not null;size:100" json:"action"`
	Details       string    `json:"details"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
	SourceAddress string    `gorm:"size:64" json:"source_address"`
}

// TableName returns the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "activity_logs"
}
