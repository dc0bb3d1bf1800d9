package chi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/logger"
)

const (
	exportSheet       = "History"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilePattern = "risk-history-%s.xlsx"
)

var exportHeader = []any{
	"Request ID", "Created At", "Product", "Risk Score", "Risk Level",
	"Model", "Confidence", "Summary", "Vulnerabilities", "Recommendations", "Sources",
}

// ExportHistory handles GET /analysis/history/export: the caller's history as an XLSX workbook.
func (s *Server) ExportHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.analysis.ExportHistory(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	f, err := buildWorkbook(items)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf(exportFilePattern, time.Now().UTC().Format("20060102"))))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		logger.FromContext(r.Context()).Error("Failed to write export", zap.Error(err))
	}
}

func buildWorkbook(items []assessment.Assessment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i := range items {
		a := &items[i]
		out := a.Output()
		sources := make([]string, 0, len(out.Provenance()))
		for _, p := range out.Provenance() {
			src := p.URL
			if src == "" {
				src = p.Source + ":" + p.ID
			}
			sources = append(sources, src)
		}
		row := []any{
			a.ID(),
			a.CreatedAt().UTC().Format(time.RFC3339),
			a.Input().Product.Name,
			out.RiskScore(),
			string(out.RiskLevel()),
			out.Model(),
			out.Confidence(),
			out.Summary(),
			strings.Join(out.Vulnerabilities(), "\n"),
			strings.Join(out.Recommendations(), "\n"),
			strings.Join(sources, "\n"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "H", "K", 60); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	return f, nil
}
