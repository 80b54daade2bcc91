package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/garnizeh/recruit/internal/export"
	"github.com/garnizeh/recruit/pkg/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exporter *export.Exporter
}

func NewExportHandler(e *export.Exporter) *ExportHandler {
	return &ExportHandler{exporter: e}
}

func attachment(w http.ResponseWriter, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// Phones serves the phone list as text. Query: status, from, to.
func (h *ExportHandler) Phones(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.exporter.PhoneList(r.Context(), caller, export.PhoneFilter{
		Status: models.InterviewStatus(q.Get("status")),
		From:   from,
		To:     to,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	attachment(w, "phones.txt", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// Candidates serves the candidate workbook. Query: status (default all).
func (h *ExportHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status == "all" {
		status = ""
	}

	buf, err := h.exporter.CandidatesWorkbook(r.Context(), caller, models.CandidateStatus(status))
	if err != nil {
		writeError(w, r, err)
		return
	}

	attachment(w, fmt.Sprintf("candidates-%s.xlsx", time.Now().UTC().Format("20060102")), xlsxContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
