package entity

import (
	"encoding/json"
	"sort"
	"time"
)

// Asset is a tracked piece of hospital equipment
type Asset struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	AssetTag      string        `json:"asset_tag"`
	CatalogItemID *int64        `json:"catalog_item_id,omitempty"`
	Location      string        `json:"location,omitempty"`
	Metadata      AssetMetadata `json:"metadata"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// MaintenanceEntry is one row of an asset's maintenance history
type MaintenanceEntry struct {
	EventID       int64     `json:"eventId"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Type          string    `json:"type"`
	Outcome       string    `json:"outcome,omitempty"`
	PerformedByID *int64    `json:"performedById,omitempty"`
}

// IncidentEntry is one row of an asset's incident history
type IncidentEntry struct {
	IncidentID        int64     `json:"incidentId"`
	Title             string    `json:"title"`
	ReportedDate      time.Time `json:"reportedDate"`
	ResolvedDate      time.Time `json:"resolvedDate"`
	Priority          string    `json:"priority"`
	RootCause         string    `json:"rootCause,omitempty"`
	ResolutionSummary string    `json:"resolutionSummary,omitempty"`
}

// AssetMetadata is the open metadata bag of an asset. The history and health
// keys are typed; any other key is preserved untouched in Extra.
type AssetMetadata struct {
	MaintenanceHistory  []MaintenanceEntry `json:"maintenanceHistory,omitempty"`
	IncidentHistory     []IncidentEntry    `json:"incidentHistory,omitempty"`
	LastMaintenanceDate *time.Time         `json:"lastMaintenanceDate,omitempty"`
	MaintenanceStatus   string             `json:"maintenanceStatus,omitempty"`
	MTBF                *float64           `json:"mtbf,omitempty"`
	Reliability         string             `json:"reliability,omitempty"`
	HealthStatus        string             `json:"healthStatus,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type assetMetadataFields AssetMetadata

var assetMetadataKeys = []string{
	"maintenanceHistory", "incidentHistory", "lastMaintenanceDate",
	"maintenanceStatus", "mtbf", "reliability", "healthStatus",
}

func (m *AssetMetadata) UnmarshalJSON(data []byte) error {
	var fields assetMetadataFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range assetMetadataKeys {
		delete(raw, k)
	}

	*m = AssetMetadata(fields)
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

func (m AssetMetadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(assetMetadataFields(m))
	if err != nil || len(m.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(assetMetadataKeys))
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, typed := merged[k]; !typed {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// RecordMaintenance appends a maintenance entry, keeps the newest entries only
// and marks the asset as up to date.
func (m *AssetMetadata) RecordMaintenance(e MaintenanceEntry) {
	m.MaintenanceHistory = append(m.MaintenanceHistory, e)
	if n := len(m.MaintenanceHistory); n > MaxHistoryEntries {
		m.MaintenanceHistory = append([]MaintenanceEntry(nil), m.MaintenanceHistory[n-MaxHistoryEntries:]...)
	}
	date := e.Date
	m.LastMaintenanceDate = &date
	m.MaintenanceStatus = MaintenanceUpToDate
}

// RecordResolvedIncident appends an incident entry, keeps the newest entries
// only and refreshes MTBF and reliability once enough history exists.
func (m *AssetMetadata) RecordResolvedIncident(e IncidentEntry) {
	m.IncidentHistory = append(m.IncidentHistory, e)
	if n := len(m.IncidentHistory); n > MaxHistoryEntries {
		m.IncidentHistory = append([]IncidentEntry(nil), m.IncidentHistory[n-MaxHistoryEntries:]...)
	}

	if mtbf, ok := ComputeMTBF(m.IncidentHistory); ok {
		m.MTBF = &mtbf
		m.Reliability = ReliabilityFor(mtbf)
	}
}

// ApplyIncidentPriority adjusts health for a newly reported incident.
// Critical and High force critical; Medium only moves a healthy asset to
// warning; Low changes nothing.
func (m *AssetMetadata) ApplyIncidentPriority(priority string) {
	switch priority {
	case PriorityCritical, PriorityHigh:
		m.HealthStatus = HealthCritical
	case PriorityMedium:
		if m.HealthStatus == "" || m.HealthStatus == HealthHealthy {
			m.HealthStatus = HealthWarning
		}
	}
}

// MinIncidentsForMTBF is the history length below which MTBF is not computed
const MinIncidentsForMTBF = 3

// ComputeMTBF returns the mean gap in days between one incident's resolution
// and the next incident's report. Non-positive gaps are skipped. ok is false
// with fewer than MinIncidentsForMTBF entries or when no gap is positive.
func ComputeMTBF(history []IncidentEntry) (mtbf float64, ok bool) {
	if len(history) < MinIncidentsForMTBF {
		return 0, false
	}

	sorted := append([]IncidentEntry(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReportedDate.Before(sorted[j].ReportedDate)
	})

	var total float64
	var gaps int
	for i := 1; i < len(sorted); i++ {
		days := sorted[i].ReportedDate.Sub(sorted[i-1].ResolvedDate).Hours() / 24
		if days <= 0 {
			continue
		}
		total += days
		gaps++
	}
	if gaps == 0 {
		return 0, false
	}
	return total / float64(gaps), true
}

// ReliabilityFor buckets an MTBF in days
func ReliabilityFor(mtbf float64) string {
	switch {
	case mtbf > 90:
		return ReliabilityHigh
	case mtbf > 30:
		return ReliabilityMedium
	default:
		return ReliabilityLow
	}
}
