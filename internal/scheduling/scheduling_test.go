package scheduling_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/recruit/db"
	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	dbpkg "github.com/garnizeh/recruit/internal/db"
	sqlite "github.com/garnizeh/recruit/internal/repository/sqlite"
	"github.com/garnizeh/recruit/internal/scheduling"
	"github.com/garnizeh/recruit/pkg/models"
)

var staff = auth.Caller{AccountID: 1, Role: models.RoleStaff}

func newStore(t *testing.T) *sqlite.SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, dbfs.Migrations))
	return sqlite.New(d, nil)
}

func seed(t *testing.T, store *sqlite.SQLiteRepo, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	for i := range ids {
		id, err := store.CreateCandidate(context.Background(), &models.Candidate{
			Name:  "Candidate",
			Email: string(rune('a'+i)) + "@example.com",
			Phone: "9175550000",
		})
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		expr    string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"3", []int64{3}, false},
		{"1-3", []int64{1, 2, 3}, false},
		{"1-2, 5 7-8", []int64{1, 2, 5, 7, 8}, false},
		{" 4-4 ", []int64{4}, false},
		{"5-3", nil, true},
		{"a-3", nil, true},
		{"0-2", nil, true},
		{"-2", nil, true},
		{"1-", nil, true},
		{"1-10001", nil, true},
		{"1-5000 6001-11000", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := scheduling.ParseRanges(tc.expr)
			if tc.wantErr {
				var ve *apperr.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveSelection(t *testing.T) {
	got, err := scheduling.ResolveSelection([]int64{3, 7}, "5-8")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 6, 7, 8}, got)

	got, err = scheduling.ResolveSelection([]int64{9, 2, 9}, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 9}, got)

	_, err = scheduling.ResolveSelection(nil, "")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = scheduling.ResolveSelection([]int64{0}, "")
	require.ErrorAs(t, err, &ve)
}

func TestSchedule_SkipsPerCandidate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ids := seed(t, store, 4)
	require.NoError(t, store.SetCandidateStatus(ctx, ids[3], models.CandidateRejected))

	s := scheduling.New(store, nil)
	date := time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.Schedule(ctx, staff, scheduling.Request{IDs: []int64{ids[0]}, Date: date})
	require.NoError(t, err)
	require.Len(t, first.Scheduled, 1)

	sum, err := s.Schedule(ctx, staff, scheduling.Request{
		Ranges: "1-4",
		IDs:    []int64{99},
		Date:   date.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	scheduled := map[int64]bool{}
	for _, sc := range sum.Scheduled {
		scheduled[sc.CandidateID] = true
	}
	assert.Equal(t, map[int64]bool{ids[1]: true, ids[2]: true}, scheduled)

	reasons := map[int64]string{}
	for _, sk := range sum.Skipped {
		reasons[sk.CandidateID] = sk.Reason
	}
	assert.Equal(t, scheduling.ReasonOpenInterview, reasons[ids[0]])
	assert.Contains(t, reasons[ids[3]], scheduling.ReasonTerminal)
	assert.Equal(t, scheduling.ReasonNotFound, reasons[99])

	c, err := store.GetCandidate(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, models.CandidateScheduled, c.Status)

	iv, err := store.OpenInterviewFor(ctx, ids[1])
	require.NoError(t, err)
	require.NotNil(t, iv)
	assert.Equal(t, 1, iv.Round)
	assert.Equal(t, date.Add(24*time.Hour).UnixMilli(), iv.ScheduledAt)
}

func TestSchedule_Validation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seed(t, store, 1)
	s := scheduling.New(store, nil)

	var ve *apperr.ValidationError
	_, err := s.Schedule(ctx, staff, scheduling.Request{IDs: []int64{1}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date", ve.Field)

	_, err = s.Schedule(ctx, staff, scheduling.Request{IDs: []int64{1}, Date: time.Now(), Round: 3})
	require.ErrorAs(t, err, &ve)

	_, err = s.Schedule(ctx, staff, scheduling.Request{Ranges: "x", Date: time.Now()})
	require.ErrorAs(t, err, &ve)

	open, err := store.OpenInterviewFor(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestSchedule_RoundEligibility(t *testing.T) {
	date := time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)
	earlier := date.Add(-72 * time.Hour).UnixMilli()

	tests := []struct {
		name       string
		status     models.CandidateStatus
		history    []models.Interview
		round      int
		wantReason string // empty means scheduled
		wantStatus models.CandidateStatus
	}{
		{
			name:       "applied takes round 1",
			status:     models.CandidateApplied,
			round:      1,
			wantStatus: models.CandidateScheduled,
		},
		{
			name:       "passed cannot go back to round 1",
			status:     models.CandidatePassed,
			history:    []models.Interview{{Round: 1, ScheduledAt: earlier, Status: models.InterviewPassed}},
			round:      1,
			wantReason: scheduling.ReasonNotApplied,
			wantStatus: models.CandidatePassed,
		},
		{
			name:       "applied cannot skip to round 2",
			status:     models.CandidateApplied,
			round:      2,
			wantReason: scheduling.ReasonNoFirstPass,
			wantStatus: models.CandidateApplied,
		},
		{
			name:       "passed round 1 takes round 2",
			status:     models.CandidatePassed,
			history:    []models.Interview{{Round: 1, ScheduledAt: earlier, Status: models.InterviewPassed}},
			round:      2,
			wantStatus: models.CandidateSecondRound,
		},
		{
			name:   "passed round 2 cannot take another",
			status: models.CandidatePassed,
			history: []models.Interview{
				{Round: 1, ScheduledAt: earlier, Status: models.InterviewSecondRound},
				{Round: 2, ScheduledAt: earlier + 1, Status: models.InterviewPassed},
			},
			round:      2,
			wantReason: scheduling.ReasonNoFirstPass,
			wantStatus: models.CandidatePassed,
		},
		{
			name:       "slot already used by a closed interview",
			status:     models.CandidateApplied,
			history:    []models.Interview{{Round: 1, ScheduledAt: date.UnixMilli(), Status: models.InterviewRejected}},
			round:      1,
			wantReason: scheduling.ReasonSlotTaken,
			wantStatus: models.CandidateApplied,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			cid := seed(t, store, 1)[0]
			require.NoError(t, store.SetCandidateStatus(ctx, cid, tc.status))
			for _, iv := range tc.history {
				iv.CandidateID = cid
				_, err := store.CreateInterview(ctx, &iv)
				require.NoError(t, err)
			}

			sum, err := scheduling.New(store, nil).Schedule(ctx, staff, scheduling.Request{IDs: []int64{cid}, Date: date, Round: tc.round})
			require.NoError(t, err)

			if tc.wantReason == "" {
				require.Len(t, sum.Scheduled, 1)
				assert.Empty(t, sum.Skipped)
			} else {
				assert.Empty(t, sum.Scheduled)
				require.Len(t, sum.Skipped, 1)
				assert.Contains(t, sum.Skipped[0].Reason, tc.wantReason)
			}

			c, err := store.GetCandidate(ctx, cid)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, c.Status)
		})
	}
}

func TestSchedule_RequiresCapability(t *testing.T) {
	store := newStore(t)
	_, err := scheduling.New(store, nil).Schedule(context.Background(),
		auth.Caller{Role: models.RoleCandidate},
		scheduling.Request{IDs: []int64{1}, Date: time.Now()})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}
