package model

import "time"

// EmailMessage is a plain-text view of one mailbox message. Instances are
// read-only once fetched; identity is ID.
type EmailMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
