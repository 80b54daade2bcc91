package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/recruit/pkg/models"
)

const interviewColumns = `id, candidate_id, round, scheduled_at, status, notes, created, updated`

func (r *SQLiteRepo) CreateInterview(ctx context.Context, iv *models.Interview) (int64, error) {
	if iv == nil {
		return 0, fmt.Errorf("interview is nil")
	}
	if iv.Status == "" {
		iv.Status = models.InterviewScheduled
	}
	if iv.Round <= 0 {
		iv.Round = 1
	}

	ts := now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO interviews (candidate_id, round, scheduled_at, status, notes, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		iv.CandidateID, iv.Round, iv.ScheduledAt, iv.Status, iv.Notes, ts, ts)
	if err != nil {
		return 0, mapErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetInterview(ctx context.Context, id int64) (*models.Interview, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	return scanInterview(row)
}

// OpenInterviewFor returns the candidate's scheduled or completed interview, if any.
func (r *SQLiteRepo) OpenInterviewFor(ctx context.Context, candidateID int64) (*models.Interview, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = ? AND status IN ('scheduled', 'completed') LIMIT 1`, candidateID)
	return scanInterview(row)
}

func (r *SQLiteRepo) LatestInterviewFor(ctx context.Context, candidateID int64) (*models.Interview, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = ? ORDER BY round DESC, scheduled_at DESC, id DESC LIMIT 1`, candidateID)
	return scanInterview(row)
}

func (r *SQLiteRepo) ListInterviewsByCandidate(ctx context.Context, candidateID int64) ([]models.Interview, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = ? ORDER BY scheduled_at ASC, id ASC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *iv)
	}

	return out, rows.Err()
}

// ListInterviews returns interviews joined with their candidates, ordered by
// date then candidate id (ascending unless f.Descending).
func (r *SQLiteRepo) ListInterviews(ctx context.Context, f models.InterviewFilter) ([]models.InterviewWithCandidate, error) {
	var conds []string
	var args []any
	if len(f.Statuses) > 0 {
		conds = append(conds, `i.status IN (`+placeholders(len(f.Statuses))+`)`)
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.From > 0 {
		conds = append(conds, `i.scheduled_at >= ?`)
		args = append(args, f.From)
	}
	if f.To > 0 {
		conds = append(conds, `i.scheduled_at < ?`)
		args = append(args, f.To)
	}

	q := `SELECT i.id, i.candidate_id, i.round, i.scheduled_at, i.status, i.notes, i.created, i.updated, c.name, c.email, c.phone, c.status
		FROM interviews i JOIN candidates c ON c.id = i.candidate_id`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	if f.Descending {
		q += ` ORDER BY i.scheduled_at DESC, i.candidate_id DESC, i.id DESC`
	} else {
		q += ` ORDER BY i.scheduled_at ASC, i.candidate_id ASC, i.id ASC`
	}

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InterviewWithCandidate
	for rows.Next() {
		var iv models.InterviewWithCandidate
		if err := rows.Scan(&iv.ID, &iv.CandidateID, &iv.Round, &iv.ScheduledAt, &iv.Status, &iv.Notes, &iv.Created, &iv.Updated,
			&iv.CandidateName, &iv.CandidateEmail, &iv.CandidatePhone, &iv.CandidateStatus); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CompletePastInterviews(ctx context.Context, nowMillis int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE interviews SET status = 'completed', updated = ? WHERE status = 'scheduled' AND scheduled_at < ?`, now(), nowMillis)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) TransitionInterview(ctx context.Context, id int64, from, to models.InterviewStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE interviews SET status = ?, updated = ? WHERE id = ? AND status = ?`, to, now(), id, from)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanInterview(s scanner) (*models.Interview, error) {
	var iv models.Interview
	if err := s.Scan(&iv.ID, &iv.CandidateID, &iv.Round, &iv.ScheduledAt, &iv.Status, &iv.Notes, &iv.Created, &iv.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &iv, nil
}
