package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/recruit/api"
	dbfs "github.com/garnizeh/recruit/db"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/config"
	dbpkg "github.com/garnizeh/recruit/internal/db"
	sqlite "github.com/garnizeh/recruit/internal/repository/sqlite"
	"github.com/garnizeh/recruit/pkg/models"
)

const testJWTSecret = "integration-secret"

type testServer struct {
	t    *testing.T
	ts   *httptest.Server
	repo *sqlite.SQLiteRepo
}

func newTestServer(t *testing.T, opts ...func(*httptest.Server)) *testServer {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:     testJWTSecret,
		TokenDuration: time.Hour,
		Import:        config.ImportConfig{MinPhoneDigits: 7, MaxUploadBytes: 1 << 20, Timeout: time.Minute},
		Interviews:    config.InterviewConfig{SecondRoundDelay: 48 * time.Hour},
	}
	router, err := api.SetupRoutes(cfg, "test", "now", d)
	if err != nil {
		t.Fatalf("setup routes: %v", err)
	}

	ts := httptest.NewUnstartedServer(router)
	for _, o := range opts {
		o(ts)
	}
	ts.Start()
	t.Cleanup(func() {
		ts.Close()
		d.Close()
	})
	return &testServer{t: t, ts: ts, repo: sqlite.New(d, nil)}
}

func (s *testServer) do(method, path, token, contentType string, body io.Reader) *http.Response {
	s.t.Helper()
	req, err := http.NewRequest(method, s.ts.URL+path, body)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := s.ts.Client().Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	return res
}

// call sends a JSON body and decodes the JSON response into out when given.
func (s *testServer) call(method, path, token string, in, out any, wantStatus int) {
	s.t.Helper()
	var body io.Reader
	if in != nil {
		b, _ := json.Marshal(in)
		body = bytes.NewReader(b)
	}
	res := s.do(method, path, token, "application/json", body)
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	if res.StatusCode != wantStatus {
		s.t.Fatalf("%s %s: want %d got %d body=%s", method, path, wantStatus, res.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			s.t.Fatalf("%s %s: decode %s: %v", method, path, string(data), err)
		}
	}
}

func (s *testServer) account(username, password string, role models.Role) {
	s.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.t.Fatalf("hash: %v", err)
	}
	if _, err := s.repo.CreateAccount(context.Background(), &models.Account{Username: username, PasswordHash: hash, Role: role}); err != nil {
		s.t.Fatalf("create account: %v", err)
	}
}

func (s *testServer) signin(username, password string) string {
	s.t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	s.call(http.MethodPost, "/v1/auth/signin", "", map[string]string{"username": username, "password": password}, &out, http.StatusOK)
	return out.Token
}

func sampleWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Name", "Email", "Phone", "Age", "Experience (Years)", "Company_1", "Position_1"},
		{"John Doe", "johndoe@example.com", "917-555-1234", 25, 3, "TechWave Solutions", "Software Engineer"},
		{"Ethan Roberts", "ethan.roberts@mit.edu", "617-555-4321", 25, 2, "Saffron", "Data Entry"},
	}
	for i, r := range rows {
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestRecruitmentFlow(t *testing.T) {
	s := newTestServer(t)
	s.account("admin@example.com", "adminpw", models.RoleAdmin)
	s.account("staff@example.com", "staffpw", models.RoleStaff)
	admin := s.signin("admin@example.com", "adminpw")
	staff := s.signin("staff@example.com", "staffpw")

	// import, then import again
	var sum struct {
		BatchID string `json:"batch_id"`
		Created int    `json:"created"`
		Skipped int    `json:"skipped"`
	}
	for i, want := range []struct{ created, skipped int }{{2, 0}, {0, 2}} {
		res := s.do(http.MethodPost, "/v1/candidates/import", staff, "application/octet-stream", bytes.NewReader(sampleWorkbook(t)))
		data, _ := io.ReadAll(res.Body)
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("import %d: status %d body=%s", i, res.StatusCode, data)
		}
		if err := json.Unmarshal(data, &sum); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		if sum.BatchID == "" || sum.Created != want.created || sum.Skipped != want.skipped {
			t.Fatalf("import %d: unexpected summary %s", i, data)
		}
	}

	// candidate portal
	var portal struct {
		Token string `json:"token"`
	}
	s.call(http.MethodPost, "/v1/auth/portal", "", map[string]string{"email": "johndoe@example.com", "phone": "917 555 1234"}, &portal, http.StatusOK)
	var me struct {
		Candidate models.Candidate `json:"candidate"`
	}
	s.call(http.MethodGet, "/v1/me", portal.Token, nil, &me, http.StatusOK)
	if me.Candidate.Email != "johndoe@example.com" || me.Candidate.Status != models.CandidateApplied {
		t.Fatalf("unexpected portal profile: %+v", me.Candidate)
	}
	s.call(http.MethodGet, "/v1/candidates", portal.Token, nil, nil, http.StatusForbidden)

	// list and search
	var list struct {
		Total int64              `json:"total"`
		Items []models.Candidate `json:"items"`
	}
	s.call(http.MethodGet, "/v1/candidates?q=ETHAN", staff, nil, &list, http.StatusOK)
	if list.Total != 1 || list.Items[0].Email != "ethan.roberts@mit.edu" {
		t.Fatalf("unexpected search result: %+v", list)
	}
	john, ethan := me.Candidate.ID, list.Items[0].ID

	// schedule: john in the past, ethan tomorrow, plus an unknown id
	var sched struct {
		Scheduled []struct {
			CandidateID int64 `json:"candidate_id"`
			InterviewID int64 `json:"interview_id"`
		} `json:"scheduled"`
		Skipped []struct {
			CandidateID int64  `json:"candidate_id"`
			Reason      string `json:"reason"`
		} `json:"skipped"`
	}
	past := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	s.call(http.MethodPost, "/v1/interviews", staff, map[string]any{"ids": []int64{john, 999}, "date": past}, &sched, http.StatusOK)
	if len(sched.Scheduled) != 1 || len(sched.Skipped) != 1 || sched.Skipped[0].CandidateID != 999 {
		t.Fatalf("unexpected schedule summary: %+v", sched)
	}
	johnInterview := sched.Scheduled[0].InterviewID
	tomorrow := time.Now().Add(24 * time.Hour).UTC().Format("2006-01-02T15:04")
	s.call(http.MethodPost, "/v1/interviews", staff, map[string]any{"ranges": fmt.Sprintf("%d", ethan), "date": tomorrow}, &sched, http.StatusOK)
	s.call(http.MethodPost, "/v1/interviews", staff, map[string]any{"ids": []int64{john}}, nil, http.StatusBadRequest)

	// phone export only lists the upcoming interview
	res := s.do(http.MethodGet, "/v1/export/phones.txt", staff, "", nil)
	phones, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || string(phones) != "6175554321\n" {
		t.Fatalf("unexpected phone export %d %q", res.StatusCode, phones)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}

	// completed list and decisions
	var groups struct {
		Pending []models.InterviewWithCandidate `json:"pending"`
	}
	s.call(http.MethodGet, "/v1/interviews/completed", staff, nil, &groups, http.StatusOK)
	if len(groups.Pending) != 1 || groups.Pending[0].ID != johnInterview {
		t.Fatalf("unexpected completed groups: %+v", groups)
	}
	decision := fmt.Sprintf("/v1/interviews/%d/decision", johnInterview)
	s.call(http.MethodPost, decision, staff, map[string]string{"action": "maybe"}, nil, http.StatusBadRequest)
	s.call(http.MethodPost, decision, staff, map[string]string{"action": "pass"}, nil, http.StatusOK)
	var conflict struct {
		Error string `json:"error"`
	}
	s.call(http.MethodPost, decision, staff, map[string]string{"action": "reject"}, &conflict, http.StatusConflict)
	if conflict.Error == "" {
		t.Fatalf("expected error message in conflict body")
	}

	// hiring is admin only
	hire := fmt.Sprintf("/v1/candidates/%d/hire", john)
	s.call(http.MethodPost, hire, staff, nil, nil, http.StatusForbidden)
	var hired models.Candidate
	s.call(http.MethodPost, hire, admin, nil, &hired, http.StatusOK)
	if hired.Status != models.CandidateHired {
		t.Fatalf("expected hired, got %s", hired.Status)
	}
	s.call(http.MethodPost, fmt.Sprintf("/v1/candidates/%d/hire", ethan), admin, nil, nil, http.StatusConflict)

	var stats models.Stats
	s.call(http.MethodGet, "/v1/candidates/stats", staff, nil, &stats, http.StatusOK)
	if stats.TotalCandidates != 2 || stats.ByStatus[models.CandidateHired] != 1 || stats.Upcoming != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// workbook export
	res = s.do(http.MethodGet, "/v1/export/candidates.xlsx", staff, "", nil)
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.Contains(res.Header.Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("unexpected workbook export: %d %v", res.StatusCode, res.Header)
	}
}

func TestCandidateEditAndDelete(t *testing.T) {
	s := newTestServer(t)
	s.account("admin@example.com", "adminpw", models.RoleAdmin)
	s.account("staff@example.com", "staffpw", models.RoleStaff)
	admin := s.signin("admin@example.com", "adminpw")
	staff := s.signin("staff@example.com", "staffpw")

	res := s.do(http.MethodPost, "/v1/candidates/import", admin, "application/octet-stream", bytes.NewReader(sampleWorkbook(t)))
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("import: status %d", res.StatusCode)
	}
	c, err := s.repo.GetCandidateByEmail(context.Background(), "ethan.roberts@mit.edu")
	if err != nil || c == nil {
		t.Fatalf("candidate missing: %v", err)
	}
	path := fmt.Sprintf("/v1/candidates/%d", c.ID)

	s.call(http.MethodPatch, path, staff, map[string]any{"name": "E"}, nil, http.StatusForbidden)
	s.call(http.MethodPatch, path, admin, map[string]any{"age": 5}, nil, http.StatusBadRequest)
	s.call(http.MethodPatch, path, admin, map[string]any{"nickname": "E"}, nil, http.StatusBadRequest)
	s.call(http.MethodPatch, path, admin, map[string]any{"email": "johndoe@example.com"}, nil, http.StatusConflict)

	var detail struct {
		Candidate models.Candidate `json:"candidate"`
	}
	s.call(http.MethodPatch, path, admin, map[string]any{
		"name":       "Ethan R.",
		"phone":      "+1 (617) 555-0000",
		"age":        nil,
		"experience": []map[string]string{{"institute": "Acme", "position": "QA"}},
	}, &detail, http.StatusOK)
	if detail.Candidate.Name != "Ethan R." || detail.Candidate.Phone != "16175550000" || detail.Candidate.Age != nil {
		t.Fatalf("edit not applied: %+v", detail.Candidate)
	}
	if len(detail.Candidate.Experience) != 1 || detail.Candidate.Experience[0].Institute != "Acme" {
		t.Fatalf("experience not replaced: %+v", detail.Candidate.Experience)
	}

	// the new phone is the new portal password
	s.call(http.MethodPost, "/v1/auth/portal", "", map[string]string{"email": "ethan.roberts@mit.edu", "phone": "617-555-4321"}, nil, http.StatusUnauthorized)
	s.call(http.MethodPost, "/v1/auth/portal", "", map[string]string{"email": "ethan.roberts@mit.edu", "phone": "16175550000"}, nil, http.StatusOK)

	s.call(http.MethodDelete, path, staff, nil, nil, http.StatusForbidden)
	res = s.do(http.MethodDelete, path, admin, "", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: want 204 got %d", res.StatusCode)
	}
	s.call(http.MethodGet, path, staff, nil, nil, http.StatusNotFound)
	if acc, _ := s.repo.GetAccountByUsername(context.Background(), "ethan.roberts@mit.edu"); acc != nil {
		t.Fatalf("account should be deleted with the candidate")
	}
}

func TestUnauthenticatedAndErrors(t *testing.T) {
	s := newTestServer(t)
	s.call(http.MethodGet, "/v1/candidates", "", nil, nil, http.StatusUnauthorized)
	s.call(http.MethodGet, "/health", "", nil, nil, http.StatusOK)

	s.account("staff@example.com", "staffpw", models.RoleStaff)
	staff := s.signin("staff@example.com", "staffpw")

	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	res := s.do(http.MethodPost, "/v1/candidates/import", staff, "application/octet-stream", strings.NewReader("not a workbook"))
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 got %d: %s", res.StatusCode, data)
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		t.Fatalf("expected JSON error body, got %s", data)
	}

	res = s.do(http.MethodPost, "/v1/candidates/import", staff, "application/octet-stream", bytes.NewReader(make([]byte, 1<<20+1024)))
	res.Body.Close()
	if res.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: want 413 got %d", res.StatusCode)
	}

	s.call(http.MethodGet, "/v1/candidates?status=unknown", staff, nil, nil, http.StatusBadRequest)
	s.call(http.MethodPost, "/v1/interviews/1/decision", staff, map[string]string{"action": "pass"}, nil, http.StatusNotFound)
	s.call(http.MethodPost, "/v1/interviews", staff, map[string]any{"ranges": "5-1", "date": "2030-01-01"}, nil, http.StatusBadRequest)

	var empty []byte
	res = s.do(http.MethodGet, "/v1/export/phones.txt", staff, "", nil)
	empty, _ = io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || len(empty) != 0 {
		t.Fatalf("expected empty phone list, got %d %q", res.StatusCode, empty)
	}
}

func TestUploadOutlivesServerWriteTimeout(t *testing.T) {
	// every request stalls past the server write timeout before routing
	s := newTestServer(t, func(ts *httptest.Server) {
		router := ts.Config.Handler
		ts.Config.WriteTimeout = 20 * time.Millisecond
		ts.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(60 * time.Millisecond)
			router.ServeHTTP(w, r)
		})
	})
	// signin would be cut off too, so the token is issued directly
	s.account("staff@example.com", "staffpw", models.RoleStaff)
	acc, err := s.repo.GetAccountByUsername(context.Background(), "staff@example.com")
	if err != nil || acc == nil {
		t.Fatalf("account missing: %v", err)
	}
	token, err := auth.NewIssuer(testJWTSecret, time.Hour).Issue(acc)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	res := s.do(http.MethodPost, "/v1/candidates/import", token, "application/octet-stream", bytes.NewReader(sampleWorkbook(t)))
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("import: status %d body=%s", res.StatusCode, data)
	}

	req, _ := http.NewRequest(http.MethodGet, s.ts.URL+"/health", nil)
	if res, err := s.ts.Client().Do(req); err == nil {
		res.Body.Close()
		t.Fatalf("expected the write timeout to cut off other routes, got %d", res.StatusCode)
	}
}
