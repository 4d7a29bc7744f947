package model

import "time"

// SummaryRecord is the durable outcome of processing one message. It is the
// system's source of truth: dedup state can always be rebuilt from it.
type SummaryRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	MessageID      string    `json:"message_id" gorm:"uniqueIndex;type:varchar(255)"`
	Sender         string    `json:"sender" gorm:"type:varchar(255)"`
	Subject        string    `json:"subject" gorm:"type:varchar(512)"`
	Summary        string    `json:"summary" gorm:"type:text"`
	IsConfidential bool      `json:"is_confidential"`
	Degraded       bool      `json:"degraded"`
	Markers        string    `json:"markers" gorm:"type:varchar(512)"`
	RedactionCount int       `json:"redaction_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for SummaryRecord
func (SummaryRecord) TableName() string {
	return "summary_records"
}
