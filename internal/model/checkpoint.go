package model

import "time"

// Checkpoint records the newest message timestamp a completed poll cycle has
// seen for a folder. It only ever moves forward.
type Checkpoint struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Folder    string    `json:"folder" gorm:"uniqueIndex;type:varchar(255)"`
	LastSeen  time.Time `json:"last_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Checkpoint
func (Checkpoint) TableName() string {
	return "checkpoints"
}
