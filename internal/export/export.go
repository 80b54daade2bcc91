// Package export renders downloadable artifacts: the phone list of
// interviewees and a candidate workbook.
package export

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

// Sweeper completes interviews whose date has passed.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

type Exporter struct {
	store   repository.Store
	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

// New returns an Exporter. sweeper may be nil, in which case statuses are
// exported as stored.
func New(store repository.Store, sweeper Sweeper, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, sweeper: sweeper, logger: logger, now: time.Now}
}

// PhoneFilter selects interviews for PhoneList. Zero From/To are unbounded;
// To is exclusive.
type PhoneFilter struct {
	Status models.InterviewStatus // empty means scheduled
	From   time.Time
	To     time.Time
}

// PhoneList returns one phone number per line, each followed by a newline,
// for the candidates of the matching interviews. Lines are ordered by
// interview date and then candidate id; a candidate appears once. No match
// yields an empty artifact, not an error.
func (e *Exporter) PhoneList(ctx context.Context, caller auth.Caller, f PhoneFilter) ([]byte, error) {
	if err := caller.Require(auth.CapExportData); err != nil {
		return nil, err
	}
	if f.Status == "" {
		f.Status = models.InterviewScheduled
	}
	if !f.Status.Valid() {
		return nil, apperr.Validation("status", "unknown interview status %q", f.Status)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, apperr.Validation("to", "must be after from")
	}

	if e.sweeper != nil {
		if _, err := e.sweeper.Sweep(ctx, e.now()); err != nil {
			return nil, err
		}
	}

	filter := models.InterviewFilter{Statuses: []models.InterviewStatus{f.Status}}
	if !f.From.IsZero() {
		filter.From = f.From.UnixMilli()
	}
	if !f.To.IsZero() {
		filter.To = f.To.UnixMilli()
	}
	list, err := e.store.ListInterviews(ctx, filter)
	if err != nil {
		return nil, apperr.Persistence("export phones", err)
	}

	var buf bytes.Buffer
	seen := make(map[int64]bool, len(list))
	for _, iv := range list {
		if seen[iv.CandidateID] {
			continue
		}
		seen[iv.CandidateID] = true
		buf.WriteString(iv.CandidatePhone)
		buf.WriteByte('\n')
	}

	e.logger.Info("phone list exported",
		slog.Int64("caller", caller.AccountID),
		slog.String("status", string(f.Status)),
		slog.Int("count", len(seen)),
	)
	return buf.Bytes(), nil
}
