package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

type reportService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	administration AdministrationService
	sessions       SessionService
}

func NewReportService(repo repositories.Repository, logger *slog.Logger, administrations AdministrationService, sessions SessionService) ReportService {
	return &reportService{
		repo:           repo,
		logger:         logger,
		administration: administrations,
		sessions:       sessions,
	}
}

// ExportAdministrationResults renders one administration's scored results as
// a downloadable file. Only item numbers and opaque identifiers appear in
// the export, never item text or patient names.
func (s *reportService) ExportAdministrationResults(ctx context.Context, administrationID uint, format ReportFormat, actorID string) (*ReportFile, error) {
	view, err := s.administration.GetByID(ctx, administrationID)
	if err != nil {
		return nil, err
	}
	if view.Results == nil {
		return nil, ErrReportNoData
	}

	var file *ReportFile
	switch format {
	case ReportFormatXLSX:
		file, err = s.resultsXLSX(view)
	case ReportFormatCSV:
		file, err = s.resultsCSV(view)
	default:
		return nil, ErrReportFormatUnknown
	}
	if err != nil {
		return nil, err
	}

	s.auditExport(ctx, actorID, "administration", &administrationID, file.FileName)
	return file, nil
}

// ExportPatientTimeline renders the longitudinal score history for a patient.
func (s *reportService) ExportPatientTimeline(ctx context.Context, patientID string, scaleID *uint, format ReportFormat, actorID string) (*ReportFile, error) {
	timeline, err := s.sessions.GetPatientTimeline(ctx, patientID, scaleID)
	if err != nil {
		return nil, err
	}
	if len(timeline) == 0 {
		return nil, ErrReportNoData
	}

	var file *ReportFile
	switch format {
	case ReportFormatXLSX:
		file, err = s.timelineXLSX(patientID, timeline)
	case ReportFormatCSV:
		file, err = s.timelineCSV(patientID, timeline)
	default:
		return nil, ErrReportFormatUnknown
	}
	if err != nil {
		return nil, err
	}

	s.auditExport(ctx, actorID, "patient_timeline", nil, file.FileName)
	return file, nil
}

// GetAuditTrail lists audit entries, newest first. Every catalog change,
// response capture and export lands here, so this is the compliance view.
func (s *reportService) GetAuditTrail(ctx context.Context, filters repositories.AuditFilters) (*AuditTrailResponse, error) {
	entries, total, err := s.repo.Audit().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return &AuditTrailResponse{
		Entries: entries,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// ===== XLSX RENDERING =====

func (s *reportService) resultsXLSX(view *AdministrationResponse) (*ReportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	results := view.Results
	rows := [][]interface{}{
		{"Scale", view.Scale.Abbreviation},
		{"Administration ID", view.Administration.ID},
		{"Status", string(view.Administration.Status)},
		{"Total Score", results.TotalScore},
		{"Max Score", results.MaxScore},
		{"Completion %", results.CompletionPercentage},
		{"Partial", results.Partial},
		{"Scored At", results.ScoredAt.Format(time.RFC3339)},
	}
	if results.Interpretation != nil {
		rows = append(rows,
			[]interface{}{"Severity", string(results.Interpretation.Severity)},
			[]interface{}{"Interpretation", results.Interpretation.Label},
		)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write results sheet: %w", err)
		}
	}

	if len(results.SubscaleScores) > 0 {
		const subSheet = "Subscales"
		if _, err := f.NewSheet(subSheet); err != nil {
			return nil, fmt.Errorf("failed to create subscale sheet: %w", err)
		}
		header := []interface{}{"Subscale", "Score", "Items"}
		_ = f.SetSheetRow(subSheet, "A1", &header)
		rowIdx := 2
		for _, sub := range results.SubscaleScores {
			row := []interface{}{sub.Name, sub.Score, sub.ItemCount}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			_ = f.SetSheetRow(subSheet, cell, &row)
			rowIdx++
		}
	}

	if len(results.Alerts) > 0 {
		const alertSheet = "Alerts"
		if _, err := f.NewSheet(alertSheet); err != nil {
			return nil, fmt.Errorf("failed to create alert sheet: %w", err)
		}
		header := []interface{}{"Type", "Item", "Score", "Message"}
		_ = f.SetSheetRow(alertSheet, "A1", &header)
		for i, alert := range results.Alerts {
			row := []interface{}{string(alert.Type), alert.ItemNumber, alert.Score, alert.Message}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			_ = f.SetSheetRow(alertSheet, cell, &row)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	return &ReportFile{
		FileName:    fmt.Sprintf("%s_administration_%d.xlsx", view.Scale.Abbreviation, view.Administration.ID),
		ContentType: contentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

func (s *reportService) timelineXLSX(patientID string, timeline []models.TimelineEntry) (*ReportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Timeline"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"Session Date", "Scale", "Score", "Change", "Severity", "Partial"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write timeline header: %w", err)
	}

	for i, entry := range timeline {
		row := []interface{}{
			entry.SessionDate.Format("2006-01-02"),
			entry.ScaleAbbreviation,
			entry.Score,
			timelineChange(entry.ScoreChange),
			timelineSeverity(entry.Severity),
			entry.Partial,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write timeline row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	return &ReportFile{
		FileName:    fmt.Sprintf("timeline_%s_%s.xlsx", patientID, time.Now().Format("20060102")),
		ContentType: contentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

// ===== CSV RENDERING =====

func (s *reportService) resultsCSV(view *AdministrationResponse) (*ReportFile, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	results := view.Results
	records := [][]string{
		{"scale", view.Scale.Abbreviation},
		{"administration_id", strconv.FormatUint(uint64(view.Administration.ID), 10)},
		{"status", string(view.Administration.Status)},
		{"total_score", strconv.FormatFloat(results.TotalScore, 'f', -1, 64)},
		{"max_score", strconv.FormatFloat(results.MaxScore, 'f', -1, 64)},
		{"completion_percentage", strconv.FormatFloat(results.CompletionPercentage, 'f', 1, 64)},
		{"partial", strconv.FormatBool(results.Partial)},
		{"scored_at", results.ScoredAt.Format(time.RFC3339)},
	}
	if results.Interpretation != nil {
		records = append(records,
			[]string{"severity", string(results.Interpretation.Severity)},
			[]string{"interpretation", results.Interpretation.Label},
		)
	}
	for _, alert := range results.Alerts {
		records = append(records, []string{
			"alert", string(alert.Type), strconv.Itoa(alert.ItemNumber), alert.Message,
		})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}

	return &ReportFile{
		FileName:    fmt.Sprintf("%s_administration_%d.csv", view.Scale.Abbreviation, view.Administration.ID),
		ContentType: contentTypeCSV,
		Data:        buf.Bytes(),
	}, nil
}

func (s *reportService) timelineCSV(patientID string, timeline []models.TimelineEntry) (*ReportFile, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{{"session_date", "scale", "score", "change", "severity", "partial"}}
	for _, entry := range timeline {
		records = append(records, []string{
			entry.SessionDate.Format("2006-01-02"),
			entry.ScaleAbbreviation,
			strconv.FormatFloat(entry.Score, 'f', -1, 64),
			timelineChange(entry.ScoreChange),
			timelineSeverity(entry.Severity),
			strconv.FormatBool(entry.Partial),
		})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}

	return &ReportFile{
		FileName:    fmt.Sprintf("timeline_%s_%s.csv", patientID, time.Now().Format("20060102")),
		ContentType: contentTypeCSV,
		Data:        buf.Bytes(),
	}, nil
}

// ===== HELPERS =====

func timelineChange(change *float64) string {
	if change == nil {
		return ""
	}
	return strconv.FormatFloat(*change, 'f', -1, 64)
}

func timelineSeverity(severity *models.Severity) string {
	if severity == nil {
		return ""
	}
	return string(*severity)
}

func (s *reportService) auditExport(ctx context.Context, actorID, targetType string, targetID *uint, fileName string) {
	if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
		EventType:   models.AuditReportExported,
		ActorID:     actorID,
		TargetType:  targetType,
		TargetID:    targetID,
		Description: fmt.Sprintf("report exported: %s", fileName),
	}); err != nil {
		s.logger.Error("Failed to record export audit entry", "file", fileName, "error", err)
	}
}
