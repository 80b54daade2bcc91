package models

// Domain models matching the database schema in db/migrations/0001_init.sql.
// Timestamps are unix milliseconds (UTC).

// Role is the single role tag carried by an account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleCandidate Role = "candidate"
)

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCandidate:
		return true
	}
	return false
}

type Account struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
	Created      int64  `json:"created" db:"created"`
	Updated      int64  `json:"updated" db:"updated"`
}

// CandidateStatus is the position of a candidate in the hiring pipeline.
type CandidateStatus string

const (
	CandidateApplied     CandidateStatus = "applied"
	CandidateScheduled   CandidateStatus = "scheduled"
	CandidatePassed      CandidateStatus = "passed"
	CandidateRejected    CandidateStatus = "rejected"
	CandidateSecondRound CandidateStatus = "second_round"
	CandidateHired       CandidateStatus = "hired"
)

// CandidateStatuses lists every pipeline status in workflow order.
var CandidateStatuses = []CandidateStatus{
	CandidateApplied, CandidateScheduled, CandidatePassed,
	CandidateRejected, CandidateSecondRound, CandidateHired,
}

// Valid reports whether s is a known pipeline status.
func (s CandidateStatus) Valid() bool {
	for _, v := range CandidateStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further scheduling may happen for the candidate.
func (s CandidateStatus) Terminal() bool {
	return s == CandidateRejected || s == CandidateHired
}

// ExperienceEntry is one (institute, position) pair of a candidate's history.
type ExperienceEntry struct {
	Institute string `json:"institute"`
	Position  string `json:"position"`
}

type Candidate struct {
	ID              int64             `json:"id" db:"id"`
	AccountID       *int64            `json:"account_id,omitempty" db:"account_id"`
	Name            string            `json:"name" db:"name"`
	Email           string            `json:"email" db:"email"`
	Phone           string            `json:"phone" db:"phone"`
	Age             *int              `json:"age,omitempty" db:"age"`
	ExperienceYears int               `json:"experience_years" db:"experience_years"`
	Institute       string            `json:"institute" db:"institute"`
	Experience      []ExperienceEntry `json:"experience" db:"experience_json"`
	Status          CandidateStatus   `json:"status" db:"status"`
	Created         int64             `json:"created" db:"created"`
	Updated         int64             `json:"updated" db:"updated"`
}

// InterviewStatus is the state of a single interview.
type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewPassed      InterviewStatus = "passed"
	InterviewRejected    InterviewStatus = "rejected"
	InterviewSecondRound InterviewStatus = "second_round"
)

// Valid reports whether s is a known interview status.
func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewScheduled, InterviewCompleted, InterviewPassed, InterviewRejected, InterviewSecondRound:
		return true
	}
	return false
}

// Open reports whether the interview still occupies the candidate's single
// active-interview slot.
func (s InterviewStatus) Open() bool {
	return s == InterviewScheduled || s == InterviewCompleted
}

type Interview struct {
	ID          int64           `json:"id" db:"id"`
	CandidateID int64           `json:"candidate_id" db:"candidate_id"`
	Round       int             `json:"round" db:"round"`
	ScheduledAt int64           `json:"scheduled_at" db:"scheduled_at"`
	Status      InterviewStatus `json:"status" db:"status"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	Created     int64           `json:"created" db:"created"`
	Updated     int64           `json:"updated" db:"updated"`
}

// InterviewWithCandidate is an interview joined with the fields of its
// candidate that list views need.
type InterviewWithCandidate struct {
	Interview
	CandidateName   string          `json:"candidate_name"`
	CandidateEmail  string          `json:"candidate_email"`
	CandidatePhone  string          `json:"candidate_phone"`
	CandidateStatus CandidateStatus `json:"candidate_status"`
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	Status CandidateStatus // empty means all
	Search string          // case-insensitive match on name, email or phone
	Limit  int
	Offset int
}

// InterviewFilter narrows interview listings and exports. From/To are unix
// milliseconds; zero means unbounded.
type InterviewFilter struct {
	Statuses   []InterviewStatus
	From       int64
	To         int64
	Descending bool // newest first
}

// Stats is the dashboard summary.
type Stats struct {
	TotalCandidates int64                     `json:"total_candidates"`
	ByStatus        map[CandidateStatus]int64 `json:"by_status"`
	Upcoming        int64                     `json:"upcoming_interviews"`
	Completed       int64                     `json:"completed_interviews"`
}
