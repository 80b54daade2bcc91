package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/importer"
	"github.com/garnizeh/recruit/pkg/models"
)

const candidatesSheet = "Candidates"

var columnWidths = map[string]float64{
	importer.ColName:               25,
	importer.ColEmail:              32,
	importer.ColPhone:              16,
	importer.ColAge:                8,
	importer.ColExperienceYears:    18,
	importer.ColInstitute:          25,
	importer.ColPreviousExperience: 60,
}

// CandidatesWorkbook renders candidates with the given status (empty means
// all) as an .xlsx workbook laid out like the import file, so it can be
// uploaded again.
func (e *Exporter) CandidatesWorkbook(ctx context.Context, caller auth.Caller, status models.CandidateStatus) (*bytes.Buffer, error) {
	if err := caller.Require(auth.CapExportData); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("status", "unknown candidate status %q", status)
	}

	list, err := e.store.ListCandidates(ctx, models.CandidateFilter{Status: status})
	if err != nil {
		return nil, apperr.Persistence("export candidates", err)
	}

	buf, err := writeCandidates(list)
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	e.logger.Info("candidate workbook exported",
		slog.Int64("caller", caller.AccountID),
		slog.String("status", string(status)),
		slog.Int("count", len(list)),
	)
	return buf, nil
}

func writeCandidates(list []models.Candidate) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range importer.Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(candidatesSheet, col, col, columnWidths[h]); err != nil {
			return nil, err
		}
	}

	header := make([]any, len(importer.Columns))
	for i, h := range importer.Columns {
		header[i] = h
	}
	if err := f.SetSheetRow(candidatesSheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(importer.Columns))
	if err := f.SetCellStyle(candidatesSheet, "A1", last+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, c := range list {
		var age any = ""
		if c.Age != nil {
			age = *c.Age
		}
		row := []any{c.Name, c.Email, c.Phone, age, c.ExperienceYears, c.Institute, formatExperience(c.Experience)}
		if err := f.SetSheetRow(candidatesSheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

// formatExperience writes the history in the form the importer parses.
func formatExperience(entries []models.ExperienceEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Position == "" {
			parts = append(parts, e.Institute+": -")
			continue
		}
		parts = append(parts, e.Institute+": "+e.Position)
	}
	return strings.Join(parts, "; ")
}
