package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/recruit/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// ErrDuplicate is wrapped by implementations when a write violates a unique
// constraint (email, username, one open interview per candidate).
var ErrDuplicate = errors.New("duplicate")

type AccountRepo interface {
	CreateAccount(ctx context.Context, a *models.Account) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAccountUsername(ctx context.Context, id int64, username string) error
	ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error)
	DeleteAccount(ctx context.Context, id int64) error
}

type CandidateRepo interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) (int64, error)
	GetCandidate(ctx context.Context, id int64) (*models.Candidate, error)
	GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error)
	GetCandidateByAccount(ctx context.Context, accountID int64) (*models.Candidate, error)
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, error)
	CountCandidates(ctx context.Context, f models.CandidateFilter) (int64, error)
	UpdateCandidate(ctx context.Context, c *models.Candidate) error
	SetCandidateStatus(ctx context.Context, id int64, status models.CandidateStatus) error
	DeleteCandidate(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.Stats, error)
}

type InterviewRepo interface {
	CreateInterview(ctx context.Context, iv *models.Interview) (int64, error)
	GetInterview(ctx context.Context, id int64) (*models.Interview, error)
	OpenInterviewFor(ctx context.Context, candidateID int64) (*models.Interview, error)
	LatestInterviewFor(ctx context.Context, candidateID int64) (*models.Interview, error)
	ListInterviewsByCandidate(ctx context.Context, candidateID int64) ([]models.Interview, error)
	ListInterviews(ctx context.Context, f models.InterviewFilter) ([]models.InterviewWithCandidate, error)
	// CompletePastInterviews moves every scheduled interview dated before
	// now (unix ms) to completed in one conditional update.
	CompletePastInterviews(ctx context.Context, now int64) (int64, error)
	// TransitionInterview sets status to `to` only if it is currently
	// `from`; it reports whether a row changed.
	TransitionInterview(ctx context.Context, id int64, from, to models.InterviewStatus) (bool, error)
}

// Store groups the repositories and scopes them to a transaction.
type Store interface {
	AccountRepo
	CandidateRepo
	InterviewRepo
	// WithTx runs fn with a Store bound to one transaction, committing when
	// fn returns nil. Calling WithTx on a transaction-bound Store reuses the
	// same transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
