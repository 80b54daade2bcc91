// Package importer turns an uploaded spreadsheet into candidate records and
// their portal accounts. A batch is all-or-nothing.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/normalize"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

const (
	MinAge             = 18
	MaxAge             = 100
	MaxExperienceYears = 50

	ReasonAlreadyImported = "already imported"
)

// Skip is a row that was accepted but not written.
type Skip struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ImportSummary reports the outcome of one committed batch.
type ImportSummary struct {
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Skips   []Skip `json:"skips"`
}

type Importer struct {
	store     repository.Store
	logger    *slog.Logger
	minDigits int
	sheet     string
}

type Option func(*Importer)

// WithMinPhoneDigits overrides normalize.DefaultMinPhoneDigits.
func WithMinPhoneDigits(n int) Option {
	return func(im *Importer) { im.minDigits = n }
}

// WithSheet reads the named sheet instead of the first one.
func WithSheet(name string) Option {
	return func(im *Importer) { im.sheet = name }
}

func New(store repository.Store, logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	im := &Importer{store: store, logger: logger, minDigits: normalize.DefaultMinPhoneDigits}
	for _, o := range opts {
		o(im)
	}
	return im
}

type draft struct {
	line      int
	candidate models.Candidate
	hash      string
}

// Import reads the workbook from r and persists every new row in a single
// transaction. Any invalid row or an email repeated inside the file aborts
// the batch before anything is written; the error lists every offending
// row. Emails already stored are skipped so re-importing a file is a no-op.
func (im *Importer) Import(ctx context.Context, caller auth.Caller, r io.Reader) (*ImportSummary, error) {
	if err := caller.Require(auth.CapImportCandidates); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	logger := im.logger.With(slog.String("batch_id", batchID))
	start := time.Now()

	rows, err := ReadWorkbook(r, im.sheet)
	if err != nil {
		logger.Warn("import rejected", slog.Any("error", err))
		return nil, err
	}

	drafts, err := im.validate(rows, logger)
	if err != nil {
		logger.Warn("import rejected", slog.Int("rows", len(rows)), slog.Any("error", err))
		return nil, err
	}

	summary := &ImportSummary{BatchID: batchID, Total: len(drafts), Skips: []Skip{}}
	if len(drafts) == 0 {
		logger.Info("import finished", slog.Int("total", 0))
		return summary, nil
	}

	// hash outside the transaction; bcrypt is slow and the pool has a
	// single connection
	emails := make([]string, len(drafts))
	for i := range drafts {
		emails[i] = drafts[i].candidate.Email
	}
	known, err := im.store.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, apperr.Persistence("import: lookup emails", err)
	}
	if err := accountClashes(ctx, im.store, drafts, emails, known); err != nil {
		logger.Warn("import rejected", slog.Any("error", err))
		return nil, apperr.Persistence("import: lookup accounts", err)
	}
	for i := range drafts {
		if known[drafts[i].candidate.Email] {
			continue
		}
		if drafts[i].hash, err = auth.HashPassword(drafts[i].candidate.Phone); err != nil {
			return nil, fmt.Errorf("import: hash password row %d: %w", drafts[i].line, err)
		}
	}

	err = im.store.WithTx(ctx, func(tx repository.Store) error {
		summary.Created, summary.Skipped, summary.Skips = 0, 0, summary.Skips[:0]

		existing, err := tx.ExistingEmails(ctx, emails)
		if err != nil {
			return err
		}
		if err := accountClashes(ctx, tx, drafts, emails, existing); err != nil {
			return err
		}
		for i := range drafts {
			d := &drafts[i]
			if existing[d.candidate.Email] {
				summary.Skipped++
				summary.Skips = append(summary.Skips, Skip{Row: d.line, Email: d.candidate.Email, Reason: ReasonAlreadyImported})
				continue
			}
			if d.hash == "" {
				if d.hash, err = auth.HashPassword(d.candidate.Phone); err != nil {
					return err
				}
			}

			accID, err := tx.CreateAccount(ctx, &models.Account{
				Username:     d.candidate.Email,
				PasswordHash: d.hash,
				Role:         models.RoleCandidate,
			})
			if err != nil {
				return fmt.Errorf("row %d: create account: %w", d.line, err)
			}
			c := d.candidate
			c.AccountID = &accID
			if _, err := tx.CreateCandidate(ctx, &c); err != nil {
				return fmt.Errorf("row %d: create candidate: %w", d.line, err)
			}
			summary.Created++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			logger.Warn("import conflicted with concurrent write", slog.Any("error", err))
			return nil, &apperr.ConflictError{Message: "a candidate in this file was imported concurrently", Details: []string{err.Error()}}
		}
		if !apperr.IsTyped(err) {
			logger.Error("import failed", slog.Any("error", err))
		}
		return nil, apperr.Persistence("import", err)
	}

	logger.Info("import finished",
		slog.Int("total", summary.Total),
		slog.Int("created", summary.Created),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

// accountClashes fails with a ConflictError naming every row whose email is
// already the username of an account that no stored candidate owns, such as
// a staff login. known holds the emails of stored candidates.
func accountClashes(ctx context.Context, store repository.AccountRepo, drafts []draft, emails []string, known map[string]bool) error {
	taken, err := store.ExistingUsernames(ctx, emails)
	if err != nil {
		return err
	}
	var details []string
	for _, d := range drafts {
		e := d.candidate.Email
		if taken[e] && !known[e] {
			details = append(details, fmt.Sprintf("row %d: email %s belongs to an existing account", d.line, e))
		}
	}
	if len(details) > 0 {
		return &apperr.ConflictError{
			Message: "email already used by an existing account, no candidates were imported",
			Details: details,
		}
	}
	return nil
}

func (im *Importer) validate(rows []RawRow, logger *slog.Logger) ([]draft, error) {
	var invalid, dups []string
	firstSeen := make(map[string]int, len(rows))
	drafts := make([]draft, 0, len(rows))

	for _, r := range rows {
		c, problems := im.parseRow(r, logger)
		if len(problems) > 0 {
			for _, p := range problems {
				invalid = append(invalid, fmt.Sprintf("row %d: %s", r.Line, p))
			}
			continue
		}
		if first, ok := firstSeen[c.Email]; ok {
			dups = append(dups, fmt.Sprintf("row %d: email %s already used in row %d", r.Line, c.Email, first))
			continue
		}
		firstSeen[c.Email] = r.Line
		drafts = append(drafts, draft{line: r.Line, candidate: c})
	}

	switch {
	case len(invalid) > 0:
		return nil, &apperr.ValidationError{
			Field:   "rows",
			Message: "batch rejected, no candidates were imported",
			Details: append(invalid, dups...),
		}
	case len(dups) > 0:
		return nil, &apperr.ConflictError{
			Message: "duplicate email within file, no candidates were imported",
			Details: dups,
		}
	}
	return drafts, nil
}

func (im *Importer) parseRow(r RawRow, logger *slog.Logger) (models.Candidate, []string) {
	var problems []string
	c := models.Candidate{
		Name:      r.Name,
		Institute: r.Institute,
		Status:    models.CandidateApplied,
	}

	if c.Name == "" {
		problems = append(problems, "name is missing")
	}

	email, err := normalize.Email(r.Email)
	if err != nil {
		problems = append(problems, message(err))
	}
	c.Email = email

	phone, err := normalize.Phone(r.Phone, im.minDigits)
	if err != nil {
		problems = append(problems, message(err))
	}
	c.Phone = phone

	if r.Age != "" {
		age, err := parseWhole(r.Age)
		switch {
		case err != nil:
			problems = append(problems, "age: "+err.Error())
		case age < MinAge || age > MaxAge:
			problems = append(problems, fmt.Sprintf("age %d outside %d-%d", age, MinAge, MaxAge))
		default:
			c.Age = &age
		}
	}

	if r.ExperienceYears != "" {
		years, err := parseWhole(r.ExperienceYears)
		switch {
		case err != nil:
			problems = append(problems, "experience years: "+err.Error())
		case years < 0 || years > MaxExperienceYears:
			problems = append(problems, fmt.Sprintf("experience years %d outside 0-%d", years, MaxExperienceYears))
		default:
			c.ExperienceYears = years
		}
	}

	rowLogger := logger.With(slog.Int("row", r.Line))
	c.Experience = normalize.Experience(r.PreviousExperience, rowLogger)
	c.Experience = normalize.MergeExperience(c.Experience, companyEntries(r.Companies, rowLogger))

	return c, problems
}

func companyEntries(cells []CompanyCell, logger *slog.Logger) []models.ExperienceEntry {
	var out []models.ExperienceEntry
	for _, cc := range cells {
		switch {
		case cc.Company == "" && cc.Position == "":
		case cc.Company == "":
			logger.Warn("skipping position without company", slog.String("position", cc.Position))
		default:
			out = append(out, models.ExperienceEntry{Institute: cc.Company, Position: cc.Position})
		}
	}
	return out
}

func message(err error) string {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return ve.Field + ": " + ve.Message
	}
	return err.Error()
}
