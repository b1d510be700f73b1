package entity

import "time"

// Notification is an in-app message. A nil RecipientID is addressed to inventory staff.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID *int64    `json:"recipient_id,omitempty"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RequestID   *int64    `json:"request_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
