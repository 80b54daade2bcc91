package mock

import (
	"context"

	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	AccountRepo   *mockAccountRepo
	CandidateRepo *mockCandidateRepo
	InterviewRepo *mockInterviewRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		AccountRepo:   &mockAccountRepo{},
		CandidateRepo: &mockCandidateRepo{},
		InterviewRepo: &mockInterviewRepo{},
	}
}

var (
	_ repository.AccountRepo   = (*mockAccountRepo)(nil)
	_ repository.CandidateRepo = (*mockCandidateRepo)(nil)
)

type mockAccountRepo struct {
	Stored    *models.Account
	CreateErr error
	GetErr    error
}

func (m *mockAccountRepo) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	cp := *a
	cp.ID = 1
	m.Stored = &cp
	return 1, nil
}

func (m *mockAccountRepo) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored != nil && m.Stored.ID == id {
		return m.Stored, nil
	}
	return nil, nil
}

func (m *mockAccountRepo) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored != nil && m.Stored.Username == username {
		return m.Stored, nil
	}
	return nil, nil
}

func (m *mockAccountRepo) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	if m.Stored != nil && m.Stored.ID == id {
		m.Stored.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAccountRepo) UpdateAccountUsername(ctx context.Context, id int64, username string) error {
	if m.Stored != nil && m.Stored.ID == id {
		m.Stored.Username = username
	}
	return nil
}

func (m *mockAccountRepo) ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	out := make(map[string]bool)
	for _, u := range usernames {
		if m.Stored != nil && m.Stored.Username == u {
			out[u] = true
		}
	}
	return out, nil
}

func (m *mockAccountRepo) DeleteAccount(ctx context.Context, id int64) error {
	if m.Stored != nil && m.Stored.ID == id {
		m.Stored = nil
	}
	return nil
}

type mockCandidateRepo struct {
	Stored *models.Candidate
	GetErr error
}

func (m *mockCandidateRepo) match(ok bool) (*models.Candidate, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored != nil && ok {
		return m.Stored, nil
	}
	return nil, nil
}

func (m *mockCandidateRepo) CreateCandidate(ctx context.Context, c *models.Candidate) (int64, error) {
	cp := *c
	cp.ID = 1
	m.Stored = &cp
	return 1, nil
}

func (m *mockCandidateRepo) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	return m.match(m.Stored != nil && m.Stored.ID == id)
}

func (m *mockCandidateRepo) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	return m.match(m.Stored != nil && m.Stored.Email == email)
}

func (m *mockCandidateRepo) GetCandidateByAccount(ctx context.Context, accountID int64) (*models.Candidate, error) {
	return m.match(m.Stored != nil && m.Stored.AccountID != nil && *m.Stored.AccountID == accountID)
}

func (m *mockCandidateRepo) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, e := range emails {
		if m.Stored != nil && m.Stored.Email == e {
			out[e] = true
		}
	}
	return out, nil
}

func (m *mockCandidateRepo) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored == nil || (f.Status != "" && m.Stored.Status != f.Status) {
		return nil, nil
	}
	return []models.Candidate{*m.Stored}, nil
}

func (m *mockCandidateRepo) CountCandidates(ctx context.Context, f models.CandidateFilter) (int64, error) {
	list, err := m.ListCandidates(ctx, f)
	return int64(len(list)), err
}

func (m *mockCandidateRepo) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	m.Stored = c
	return nil
}

func (m *mockCandidateRepo) SetCandidateStatus(ctx context.Context, id int64, status models.CandidateStatus) error {
	if m.Stored != nil && m.Stored.ID == id {
		m.Stored.Status = status
	}
	return nil
}

func (m *mockCandidateRepo) DeleteCandidate(ctx context.Context, id int64) error {
	if m.Stored != nil && m.Stored.ID == id {
		m.Stored = nil
	}
	return nil
}

func (m *mockCandidateRepo) Stats(ctx context.Context) (*models.Stats, error) {
	s := &models.Stats{ByStatus: map[models.CandidateStatus]int64{}}
	if m.Stored != nil {
		s.TotalCandidates = 1
		s.ByStatus[m.Stored.Status] = 1
	}
	return s, nil
}

// mockInterviewRepo implements the read side used by the candidate portal.
type mockInterviewRepo struct {
	repository.InterviewRepo
	Interviews []models.Interview
}

func (m *mockInterviewRepo) ListInterviewsByCandidate(ctx context.Context, candidateID int64) ([]models.Interview, error) {
	var out []models.Interview
	for _, iv := range m.Interviews {
		if iv.CandidateID == candidateID {
			out = append(out, iv)
		}
	}
	return out, nil
}
