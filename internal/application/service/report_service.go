package service

import (
	"bytes"
	"context"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// ReportService renders spreadsheet exports
type ReportService interface {
	// ExportRequests returns an XLSX workbook of the matching requests, their
	// progress and the stock issued to them
	ExportRequests(ctx context.Context, filter entity.RequestFilter) ([]byte, error)
}

type reportServiceImpl struct {
	requestRepo  port.RequestRepository
	progressRepo port.ProgressRepository
	stockRepo    port.StockRepository
	writer       port.ReportWriter
	logger       Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	requestRepo port.RequestRepository,
	progressRepo port.ProgressRepository,
	stockRepo port.StockRepository,
	writer port.ReportWriter,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		requestRepo:  requestRepo,
		progressRepo: progressRepo,
		stockRepo:    stockRepo,
		writer:       writer,
		logger:       logger,
	}
}

func (s *reportServiceImpl) ExportRequests(ctx context.Context, filter entity.RequestFilter) ([]byte, error) {
	if filter.Limit <= 0 {
		filter.Limit = 1000
	}
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := port.RequestReport{Requests: requests}
	for _, req := range requests {
		if req.Progress, err = s.progressRepo.GetByRequestID(ctx, req.ID); err != nil {
			return nil, err
		}
		ref := entity.RequestReference(req.ID)
		movements, err := s.stockRepo.ListMovements(ctx, port.MovementFilter{ReferencePrefix: ref})
		if err != nil {
			return nil, err
		}
		// REQ-1 is a prefix of REQ-10
		for _, m := range movements {
			if m.Reference == ref {
				report.Movements = append(report.Movements, m)
			}
		}
	}

	var buf bytes.Buffer
	if err := s.writer.WriteRequests(&buf, report); err != nil {
		s.logger.Error("Failed to render request report", "error", err)
		return nil, err
	}
	s.logger.Info("Request report exported", "requests", len(requests), "movements", len(report.Movements))
	return buf.Bytes(), nil
}
