// Package scheduling creates interviews for a selection of candidates.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

// Skip reasons.
const (
	ReasonNotFound      = "not found"
	ReasonOpenInterview = "already has an open interview"
	ReasonTerminal      = "candidate status is final"
	ReasonNotApplied    = "candidate is not awaiting a first interview"
	ReasonNoFirstPass   = "candidate has no passed first-round interview"
	ReasonSlotTaken     = "interview already exists at this date"
)

type Request struct {
	IDs    []int64   `json:"ids"`
	Ranges string    `json:"ranges"`
	Date   time.Time `json:"date"`
	Round  int       `json:"round"` // 0 means 1
	Notes  string    `json:"notes"`
}

type Scheduled struct {
	CandidateID int64 `json:"candidate_id"`
	InterviewID int64 `json:"interview_id"`
}

type Skipped struct {
	CandidateID int64  `json:"candidate_id"`
	Reason      string `json:"reason"`
}

type ScheduleSummary struct {
	Date      time.Time   `json:"date"`
	Round     int         `json:"round"`
	Scheduled []Scheduled `json:"scheduled"`
	Skipped   []Skipped   `json:"skipped"`
}

type Scheduler struct {
	store  repository.Store
	logger *slog.Logger
}

func New(store repository.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, logger: logger}
}

// Schedule books an interview on req.Date for every selected candidate that
// can take one. Candidates that cannot are reported in Skipped; only a
// storage failure rolls the whole request back.
func (s *Scheduler) Schedule(ctx context.Context, caller auth.Caller, req Request) (*ScheduleSummary, error) {
	if err := caller.Require(auth.CapScheduleInterviews); err != nil {
		return nil, err
	}
	ids, err := ResolveSelection(req.IDs, req.Ranges)
	if err != nil {
		return nil, err
	}

	var sum *ScheduleSummary
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		sum, err = s.ScheduleTx(ctx, tx, ids, req.Date, req.Round, req.Notes)
		return err
	})
	if err != nil {
		return nil, apperr.Persistence("schedule interviews", err)
	}

	s.logger.Info("interviews scheduled",
		slog.Int64("caller", caller.AccountID),
		slog.Time("date", sum.Date),
		slog.Int("round", sum.Round),
		slog.Int("scheduled", len(sum.Scheduled)),
		slog.Int("skipped", len(sum.Skipped)),
	)
	return sum, nil
}

// ScheduleTx does the work of Schedule on a transaction-bound store owned by
// the caller. Capability checks are the caller's job.
func (s *Scheduler) ScheduleTx(ctx context.Context, tx repository.Store, ids []int64, date time.Time, round int, notes string) (*ScheduleSummary, error) {
	if date.IsZero() {
		return nil, apperr.Validation("date", "interview date is required")
	}
	if round == 0 {
		round = 1
	}
	if round != 1 && round != 2 {
		return nil, apperr.Validation("round", "must be 1 or 2, got %d", round)
	}

	date = date.UTC()
	status := models.CandidateScheduled
	if round == 2 {
		status = models.CandidateSecondRound
	}

	sum := &ScheduleSummary{Date: date, Round: round, Scheduled: []Scheduled{}, Skipped: []Skipped{}}
	skip := func(id int64, reason string) {
		sum.Skipped = append(sum.Skipped, Skipped{CandidateID: id, Reason: reason})
	}

	for _, id := range ids {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		if c == nil {
			skip(id, ReasonNotFound)
			continue
		}
		if c.Status.Terminal() {
			skip(id, fmt.Sprintf("%s (%s)", ReasonTerminal, c.Status))
			continue
		}
		open, err := tx.OpenInterviewFor(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		if open != nil {
			skip(id, ReasonOpenInterview)
			continue
		}
		reason, err := roundBlocked(ctx, tx, c, round)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		if reason != "" {
			skip(id, reason)
			continue
		}

		ivID, err := tx.CreateInterview(ctx, &models.Interview{
			CandidateID: id,
			Round:       round,
			ScheduledAt: date.UnixMilli(),
			Status:      models.InterviewScheduled,
			Notes:       notes,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			// the open-interview case was ruled out above
			skip(id, ReasonSlotTaken)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		if err := tx.SetCandidateStatus(ctx, id, status); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		sum.Scheduled = append(sum.Scheduled, Scheduled{CandidateID: id, InterviewID: ivID})
	}
	return sum, nil
}

// roundBlocked returns why c cannot take an interview of the given round, or
// "" when it can. Round 1 is only for applied candidates. Round 2 needs a
// round-1 interview that passed or was sent to a second round, and no
// round-2 interview yet.
func roundBlocked(ctx context.Context, tx repository.Store, c *models.Candidate, round int) (string, error) {
	if round == 1 {
		if c.Status != models.CandidateApplied {
			return fmt.Sprintf("%s (%s)", ReasonNotApplied, c.Status), nil
		}
		return "", nil
	}

	latest, err := tx.LatestInterviewFor(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if latest == nil || latest.Round != 1 ||
		(latest.Status != models.InterviewPassed && latest.Status != models.InterviewSecondRound) {
		return ReasonNoFirstPass, nil
	}
	return "", nil
}
