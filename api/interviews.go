package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/scheduling"
	"github.com/garnizeh/recruit/internal/workflow"
)

type InterviewsHandler struct {
	scheduler *scheduling.Scheduler
	workflow  *workflow.Workflow
}

func NewInterviewsHandler(s *scheduling.Scheduler, wf *workflow.Workflow) *InterviewsHandler {
	return &InterviewsHandler{scheduler: s, workflow: wf}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseDate accepts RFC 3339 or the date/datetime-local forms browsers
// send; values without a zone are UTC. Blank yields the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation(field, "%q is not a date", s)
}

type scheduleRequest struct {
	IDs    []int64 `json:"ids"`
	Ranges string  `json:"ranges"`
	Date   string  `json:"date"`
	Round  int     `json:"round"`
	Notes  string  `json:"notes"`
}

func (h *InterviewsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := h.scheduler.Schedule(r.Context(), caller, scheduling.Request{
		IDs:    req.IDs,
		Ranges: req.Ranges,
		Date:   date,
		Round:  req.Round,
		Notes:  req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, sum, http.StatusOK)
}

func (h *InterviewsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	list, err := h.workflow.Upcoming(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"items": list}, http.StatusOK)
}

func (h *InterviewsHandler) Completed(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	g, err := h.workflow.Completed(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, g, http.StatusOK)
}

func (h *InterviewsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.workflow.Sweep(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]int64{"completed": n}, http.StatusOK)
}

type decisionRequest struct {
	Action string `json:"action"`
	Date   string `json:"date"`
}

func (h *InterviewsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.decide(w, r, workflow.Action(req.Action), req.Date)
}

// SecondRound is Decide with the second_round action and an optional date.
func (h *InterviewsHandler) SecondRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, r, apperr.Validation("body", "read body: %v", err))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, apperr.Validation("body", "invalid request: %v", err))
			return
		}
	}
	h.decide(w, r, workflow.ActionSecondRound, req.Date)
}

func (h *InterviewsHandler) decide(w http.ResponseWriter, r *http.Request, action workflow.Action, rawDate string) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate("date", rawDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.workflow.Decide(r.Context(), caller, id, workflow.DecideRequest{Action: action, Date: date})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}
