// Package workflow moves interviews and candidates through the hiring
// pipeline: completing past interviews, recording decisions, booking second
// rounds and hiring.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/scheduling"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

// DefaultSecondRoundDelay is how far ahead a second round is booked when no
// date is given.
const DefaultSecondRoundDelay = 48 * time.Hour

type Action string

const (
	ActionPass        Action = "pass"
	ActionReject      Action = "reject"
	ActionSecondRound Action = "second_round"
)

func (a Action) Valid() bool {
	return a == ActionPass || a == ActionReject || a == ActionSecondRound
}

// transitions is the only place that says which decision may follow which
// interview status.
var transitions = map[models.InterviewStatus]map[Action]models.InterviewStatus{
	models.InterviewCompleted: {
		ActionPass:        models.InterviewPassed,
		ActionReject:      models.InterviewRejected,
		ActionSecondRound: models.InterviewSecondRound,
	},
}

// candidateAfter is the pipeline status a decision moves the candidate to.
// second_round is set by the scheduler.
var candidateAfter = map[Action]models.CandidateStatus{
	ActionPass:   models.CandidatePassed,
	ActionReject: models.CandidateRejected,
}

// Allowed reports whether action may be applied to an interview in status.
func Allowed(status models.InterviewStatus, action Action) bool {
	_, ok := transitions[status][action]
	return ok
}

type Workflow struct {
	store            repository.Store
	scheduler        *scheduling.Scheduler
	logger           *slog.Logger
	secondRoundDelay time.Duration
	now              func() time.Time
}

type Option func(*Workflow)

func WithSecondRoundDelay(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.secondRoundDelay = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func New(store repository.Store, scheduler *scheduling.Scheduler, logger *slog.Logger, opts ...Option) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if scheduler == nil {
		scheduler = scheduling.New(store, logger)
	}
	w := &Workflow{
		store:            store,
		scheduler:        scheduler,
		logger:           logger,
		secondRoundDelay: DefaultSecondRoundDelay,
		now:              time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Sweep marks every scheduled interview dated before now as completed and
// returns how many changed. It is a single conditional update, so running
// it again or concurrently changes nothing twice.
func (w *Workflow) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := w.store.CompletePastInterviews(ctx, now.UnixMilli())
	if err != nil {
		return 0, apperr.Persistence("sweep interviews", err)
	}
	if n > 0 {
		w.logger.Info("interviews completed", slog.Int64("count", n))
	}
	return n, nil
}

type DecideRequest struct {
	Action Action `json:"action"`
	// Date of the second round; zero means now plus the configured delay.
	Date time.Time `json:"date"`
}

type Decision struct {
	Interview       *models.Interview           `json:"interview"`
	CandidateStatus models.CandidateStatus      `json:"candidate_status"`
	SecondRound     *scheduling.ScheduleSummary `json:"second_round,omitempty"`
}

// Decide records the outcome of a completed interview. The interview moves
// only if it is still completed when the update runs, so of two racing
// decisions exactly one wins and the other gets a ConflictError.
func (w *Workflow) Decide(ctx context.Context, caller auth.Caller, interviewID int64, req DecideRequest) (*Decision, error) {
	if err := caller.Require(auth.CapDecideInterviews); err != nil {
		return nil, err
	}
	if !req.Action.Valid() {
		return nil, apperr.Validation("action", "unknown action %q", req.Action)
	}

	now := w.now()
	if _, err := w.Sweep(ctx, now); err != nil {
		return nil, err
	}

	var out *Decision
	err := w.store.WithTx(ctx, func(tx repository.Store) error {
		iv, err := tx.GetInterview(ctx, interviewID)
		if err != nil {
			return err
		}
		if iv == nil {
			return fmt.Errorf("interview %d: %w", interviewID, apperr.ErrNotFound)
		}

		to, ok := transitions[iv.Status][req.Action]
		if !ok {
			return apperr.Conflict("interview %d is %s, cannot %s", iv.ID, iv.Status, req.Action)
		}
		if req.Action == ActionSecondRound && iv.Round >= 2 {
			return apperr.Conflict("interview %d is already a second round", iv.ID)
		}

		changed, err := tx.TransitionInterview(ctx, iv.ID, iv.Status, to)
		if err != nil {
			return err
		}
		if !changed {
			return apperr.Conflict("interview %d was decided concurrently", iv.ID)
		}
		iv.Status = to
		out = &Decision{Interview: iv}

		if req.Action != ActionSecondRound {
			out.CandidateStatus = candidateAfter[req.Action]
			return tx.SetCandidateStatus(ctx, iv.CandidateID, out.CandidateStatus)
		}

		date := req.Date
		if date.IsZero() {
			date = now.Add(w.secondRoundDelay)
		}
		sum, err := w.scheduler.ScheduleTx(ctx, tx, []int64{iv.CandidateID}, date, 2, "")
		if err != nil {
			return err
		}
		if len(sum.Scheduled) != 1 {
			reason := "not scheduled"
			if len(sum.Skipped) > 0 {
				reason = sum.Skipped[0].Reason
			}
			return &apperr.ConflictError{
				Message: fmt.Sprintf("second round for candidate %d could not be scheduled", iv.CandidateID),
				Details: []string{reason},
			}
		}
		out.CandidateStatus = models.CandidateSecondRound
		out.SecondRound = sum
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("decide interview", err)
	}

	w.logger.Info("interview decided",
		slog.Int64("caller", caller.AccountID),
		slog.Int64("interview_id", interviewID),
		slog.String("action", string(req.Action)),
	)
	return out, nil
}

// Hire makes a candidate's status hired. Only passed candidates qualify.
func (w *Workflow) Hire(ctx context.Context, caller auth.Caller, candidateID int64) (*models.Candidate, error) {
	if err := caller.Require(auth.CapHireCandidates); err != nil {
		return nil, err
	}

	var out *models.Candidate
	err := w.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := tx.GetCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("candidate %d: %w", candidateID, apperr.ErrNotFound)
		}

		// a passed round-2 decision also leaves the candidate passed
		if c.Status != models.CandidatePassed {
			return apperr.Conflict("candidate %d is %s and cannot be hired", candidateID, c.Status)
		}

		if err := tx.SetCandidateStatus(ctx, candidateID, models.CandidateHired); err != nil {
			return err
		}
		c.Status = models.CandidateHired
		out = c
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("hire candidate", err)
	}

	w.logger.Info("candidate hired", slog.Int64("caller", caller.AccountID), slog.Int64("candidate_id", candidateID))
	return out, nil
}

// Upcoming lists scheduled interviews, earliest first, after sweeping.
func (w *Workflow) Upcoming(ctx context.Context, caller auth.Caller) ([]models.InterviewWithCandidate, error) {
	if err := caller.Require(auth.CapViewCandidates); err != nil {
		return nil, err
	}
	if _, err := w.Sweep(ctx, w.now()); err != nil {
		return nil, err
	}
	list, err := w.store.ListInterviews(ctx, models.InterviewFilter{
		Statuses: []models.InterviewStatus{models.InterviewScheduled},
	})
	if err != nil {
		return nil, apperr.Persistence("list upcoming interviews", err)
	}
	return list, nil
}

// CompletedGroups splits finished interviews by outcome.
type CompletedGroups struct {
	Pending  []models.InterviewWithCandidate `json:"pending"`
	Passed   []models.InterviewWithCandidate `json:"passed"`
	Rejected []models.InterviewWithCandidate `json:"rejected"`
}

// Completed lists finished interviews, most recent first, after sweeping.
// Interviews sent to a second round count as passed.
func (w *Workflow) Completed(ctx context.Context, caller auth.Caller) (*CompletedGroups, error) {
	if err := caller.Require(auth.CapViewCandidates); err != nil {
		return nil, err
	}
	if _, err := w.Sweep(ctx, w.now()); err != nil {
		return nil, err
	}
	list, err := w.store.ListInterviews(ctx, models.InterviewFilter{
		Statuses: []models.InterviewStatus{
			models.InterviewCompleted, models.InterviewPassed,
			models.InterviewSecondRound, models.InterviewRejected,
		},
		Descending: true,
	})
	if err != nil {
		return nil, apperr.Persistence("list completed interviews", err)
	}

	g := &CompletedGroups{
		Pending:  []models.InterviewWithCandidate{},
		Passed:   []models.InterviewWithCandidate{},
		Rejected: []models.InterviewWithCandidate{},
	}
	for _, iv := range list {
		switch iv.Status {
		case models.InterviewCompleted:
			g.Pending = append(g.Pending, iv)
		case models.InterviewPassed, models.InterviewSecondRound:
			g.Passed = append(g.Passed, iv)
		case models.InterviewRejected:
			g.Rejected = append(g.Rejected, iv)
		}
	}
	return g, nil
}
