package model

import "time"

// ProcessedMessage marks a message ID as handled so later cycles skip it.
type ProcessedMessage struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	MessageID   string    `json:"message_id" gorm:"uniqueIndex;type:varchar(255)"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableName specifies the table name for ProcessedMessage
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}
