package api

import (
	"fmt"
	"net/http"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

// MeHandler serves the candidate portal.
type MeHandler struct {
	candidateRepo repository.CandidateRepo
	interviewRepo repository.InterviewRepo
}

func NewMeHandler(cr repository.CandidateRepo, ir repository.InterviewRepo) *MeHandler {
	return &MeHandler{candidateRepo: cr, interviewRepo: ir}
}

// Me returns the caller's own candidate record and interviews.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	if err := caller.Require(auth.CapViewOwnStatus); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	c, err := h.candidateRepo.GetCandidateByAccount(ctx, caller.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		writeError(w, r, fmt.Errorf("no candidate for account %d: %w", caller.AccountID, apperr.ErrNotFound))
		return
	}
	ivs, err := h.interviewRepo.ListInterviewsByCandidate(ctx, c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ivs == nil {
		ivs = []models.Interview{}
	}
	writeJSON(w, candidateDetail{Candidate: c, Interviews: ivs}, http.StatusOK)
}
