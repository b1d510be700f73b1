package entity

import (
	"strings"
	"time"
)

// Request is an IT request submitted by a user and optionally routed through a workflow
type Request struct {
	ID            int64                  `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Type          string                 `json:"type"`
	Status        string                 `json:"status"`
	Priority      string                 `json:"priority"`
	RequesterID   int64                  `json:"requester_id"`
	AssigneeID    *int64                 `json:"assignee_id,omitempty"`
	WorkflowID    *int64                 `json:"workflow_id,omitempty"`
	SubmitDate    time.Time              `json:"submit_date"`
	DueDate       *time.Time             `json:"due_date,omitempty"`
	CompletedDate *time.Time             `json:"completed_date,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`

	Items    []*RequestItem     `json:"items,omitempty"`
	Progress []*RequestProgress `json:"progress,omitempty"`
	Comments []*RequestComment  `json:"comments,omitempty"`
}

// AppendNote adds a line to the accumulated notes. Blank notes are ignored.
func (r *Request) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes = r.Notes + "\n" + note
}

// PendingProgress returns the open progress row, if any
func (r *Request) PendingProgress() *RequestProgress {
	for _, p := range r.Progress {
		if p.Status == ProgressStatusPending {
			return p
		}
	}
	return nil
}

// RequestItem is one catalog line of a request
type RequestItem struct {
	ID            int64      `json:"id"`
	RequestID     int64      `json:"request_id"`
	CatalogItemID int64      `json:"catalog_item_id"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	Fulfilled     bool       `json:"fulfilled"`
	FulfilledAt   *time.Time `json:"fulfilled_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RequestComment is an append-only audit trail entry. AuthorID is nil for
// entries written by the system (auto-progress, fulfillment).
type RequestComment struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	AuthorID  *int64    `json:"author_id,omitempty"`
	Text      string    `json:"text"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestFilter narrows ListRequests. Zero values mean "any".
type RequestFilter struct {
	Status      string
	Type        string
	RequesterID int64
	AssigneeID  int64
	Limit       int
	Offset      int
}
