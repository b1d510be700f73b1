package entity

import "time"

// MaintenanceRecord is a completed maintenance job on an asset
type MaintenanceRecord struct {
	ID            int64     `json:"id"`
	AssetID       int64     `json:"asset_id"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	Outcome       string    `json:"outcome,omitempty"`
	PerformedAt   time.Time `json:"performed_at"`
	PerformedByID *int64    `json:"performed_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Incident is a reported fault on an asset
type Incident struct {
	ID                int64      `json:"id"`
	AssetID           int64      `json:"asset_id"`
	Title             string     `json:"title"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	ReportedByID      *int64     `json:"reported_by_id,omitempty"`
	ReportedAt        time.Time  `json:"reported_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolvedByID      *int64     `json:"resolved_by_id,omitempty"`
	RootCause         string     `json:"root_cause,omitempty"`
	ResolutionSummary string     `json:"resolution_summary,omitempty"`
}
