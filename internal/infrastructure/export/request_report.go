package export

import (
	"fmt"
	"io"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names of the request report
const (
	SheetRequests  = "Requests"
	SheetProgress  = "Progress"
	SheetMovements = "Movements"
)

const dateLayout = "2006-01-02 15:04"

var (
	requestHeader  = []interface{}{"ID", "Title", "Type", "Status", "Priority", "Requester", "Assignee", "Workflow", "Submitted", "Due", "Completed", "Items"}
	progressHeader = []interface{}{"Request", "Step", "Step Order", "Status", "Result", "Started", "Completed", "Completed By", "Notes"}
	movementHeader = []interface{}{"ID", "Catalog Item", "Stock Record", "Type", "Quantity", "Before", "After", "Reference", "Performed By", "Created"}
)

// RequestReportWriter renders requests, their progress and stock movements as XLSX
type RequestReportWriter struct {
	logger *zap.Logger
}

// NewRequestReportWriter creates a new report writer
func NewRequestReportWriter(logger *zap.Logger) *RequestReportWriter {
	return &RequestReportWriter{logger: logger}
}

// WriteRequests implements port.ReportWriter
func (w *RequestReportWriter) WriteRequests(out io.Writer, report port.RequestReport) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"
	if err := f.SetSheetName("Sheet1", SheetRequests); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetProgress, SheetMovements} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var requestRows, progressRows [][]interface{}
	for _, req := range report.Requests {
		requestRows = append(requestRows, []interface{}{
			req.ID, req.Title, req.Type, req.Status, req.Priority, req.RequesterID,
			optionalID(req.AssigneeID), optionalID(req.WorkflowID),
			req.SubmitDate.Format(dateLayout), optionalTime(req.DueDate), optionalTime(req.CompletedDate),
			len(req.Items),
		})
		for _, p := range req.Progress {
			progressRows = append(progressRows, []interface{}{
				p.RequestID, p.StepID, p.StepOrder, p.Status, p.Result,
				p.StartedAt.Format(dateLayout), optionalTime(p.CompletedAt), optionalID(p.CompletedByID), p.Notes,
			})
		}
	}

	var movementRows [][]interface{}
	for _, m := range report.Movements {
		movementRows = append(movementRows, []interface{}{
			m.ID, m.CatalogItemID, m.StockRecordID, m.Type, m.Quantity, m.QuantityBefore,
			m.QuantityAfter, m.Reference, optionalID(m.PerformedByID), m.CreatedAt.Format(dateLayout),
		})
	}

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{SheetRequests, requestHeader, requestRows},
		{SheetProgress, progressHeader, progressRows},
		{SheetMovements, movementHeader, movementRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	w.logger.Info("Request report written",
		zap.Int("requests", len(report.Requests)),
		zap.Int("progress_rows", len(progressRows)),
		zap.Int("movements", len(report.Movements)))
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func optionalID(id *int64) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

var _ port.ReportWriter = (*RequestReportWriter)(nil)
