package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/recruit/pkg/models"
)

const candidateColumns = `id, account_id, name, email, phone, age, experience_years, institute, experience_json, status, created, updated`

func (r *SQLiteRepo) CreateCandidate(ctx context.Context, c *models.Candidate) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("candidate is nil")
	}
	if c.Status == "" {
		c.Status = models.CandidateApplied
	}

	exp, err := encodeExperience(c.Experience)
	if err != nil {
		return 0, err
	}

	ts := now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO candidates (account_id, name, email, phone, age, experience_years, institute, experience_json, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(c.AccountID), c.Name, c.Email, c.Phone, nullInt(c.Age), c.ExperienceYears, c.Institute, exp, c.Status, ts, ts)
	if err != nil {
		return 0, mapErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	return scanCandidate(row)
}

func (r *SQLiteRepo) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE email = ?`, email)
	return scanCandidate(row)
}

func (r *SQLiteRepo) GetCandidateByAccount(ctx context.Context, accountID int64) (*models.Candidate, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE account_id = ?`, accountID)
	return scanCandidate(row)
}

// ExistingEmails returns the subset of emails already stored.
func (r *SQLiteRepo) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	return r.existing(ctx, `SELECT email FROM candidates WHERE email IN `, emails)
}

// existing runs prefix + "(?, ...)" over values in chunks and collects the
// single text column it returns.
func (r *SQLiteRepo) existing(ctx context.Context, prefix string, values []string) (map[string]bool, error) {
	out := make(map[string]bool)
	// stay well below SQLITE_MAX_VARIABLE_NUMBER
	const chunk = 500
	for start := 0; start < len(values); start += chunk {
		end := min(start+chunk, len(values))
		part := values[start:end]

		args := make([]any, len(part))
		for i, v := range part {
			args[i] = v
		}
		rows, err := r.q.QueryContext(ctx, prefix+`(`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, err
			}
			out[v] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return out, nil
}

func candidateWhere(f models.CandidateFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		conds = append(conds, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListCandidates returns candidates in ascending id order.
func (r *SQLiteRepo) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, error) {
	where, args := candidateWhere(f)
	q := `SELECT ` + candidateColumns + ` FROM candidates` + where + ` ORDER BY id ASC`
	if f.Limit > 0 {
		offset := max(f.Offset, 0)
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, offset)
	}

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CountCandidates(ctx context.Context, f models.CandidateFilter) (int64, error) {
	where, args := candidateWhere(f)
	var cnt int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	if c == nil {
		return fmt.Errorf("candidate is nil")
	}

	exp, err := encodeExperience(c.Experience)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `UPDATE candidates SET name = ?, email = ?, phone = ?, age = ?, experience_years = ?, institute = ?, experience_json = ?, updated = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, nullInt(c.Age), c.ExperienceYears, c.Institute, exp, now(), c.ID)
	return mapErr(err)
}

func (r *SQLiteRepo) SetCandidateStatus(ctx context.Context, id int64, status models.CandidateStatus) error {
	_, err := r.q.ExecContext(ctx, `UPDATE candidates SET status = ?, updated = ? WHERE id = ?`, status, now(), id)
	return err
}

func (r *SQLiteRepo) DeleteCandidate(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	return err
}

// Stats returns candidate totals per status and open interview counts.
func (r *SQLiteRepo) Stats(ctx context.Context) (*models.Stats, error) {
	s := &models.Stats{ByStatus: make(map[models.CandidateStatus]int64)}
	for _, st := range models.CandidateStatuses {
		s.ByStatus[st] = 0
	}

	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var st models.CandidateStatus
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		s.ByStatus[st] = n
		s.TotalCandidates += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	row := r.q.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN status = 'scheduled' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM interviews`)
	if err := row.Scan(&s.Upcoming, &s.Completed); err != nil {
		return nil, err
	}

	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s scanner) (*models.Candidate, error) {
	var (
		c       models.Candidate
		account sql.NullInt64
		age     sql.NullInt64
		exp     string
	)
	if err := s.Scan(&c.ID, &account, &c.Name, &c.Email, &c.Phone, &age, &c.ExperienceYears, &c.Institute, &exp, &c.Status, &c.Created, &c.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if account.Valid {
		v := account.Int64
		c.AccountID = &v
	}
	if age.Valid {
		v := int(age.Int64)
		c.Age = &v
	}

	c.Experience = []models.ExperienceEntry{}
	if exp != "" {
		if err := json.Unmarshal([]byte(exp), &c.Experience); err != nil {
			return nil, fmt.Errorf("decode experience of candidate %d: %w", c.ID, err)
		}
	}

	return &c, nil
}

func encodeExperience(e []models.ExperienceEntry) (string, error) {
	if e == nil {
		e = []models.ExperienceEntry{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode experience: %w", err)
	}
	return string(b), nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
