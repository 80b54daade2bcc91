package api

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/importer"
	"github.com/garnizeh/recruit/internal/normalize"
	"github.com/garnizeh/recruit/internal/workflow"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

//go:embed schemas/candidate_update.json
var candidateUpdateSchema []byte

const maxEditBody = 1 << 20

type CandidatesHandler struct {
	store     repository.Store
	importer  *importer.Importer
	workflow  *workflow.Workflow
	schema    *jsonschema.Schema
	maxUpload int64
	minDigits int
	timeout   time.Duration
}

func NewCandidatesHandler(store repository.Store, im *importer.Importer, wf *workflow.Workflow, maxUpload int64, minPhoneDigits int, importTimeout time.Duration) (*CandidatesHandler, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(candidateUpdateSchema, rs); err != nil {
		return nil, fmt.Errorf("compile candidate schema: %w", err)
	}
	return &CandidatesHandler{
		store:     store,
		importer:  im,
		workflow:  wf,
		schema:    rs,
		maxUpload: maxUpload,
		minDigits: minPhoneDigits,
		timeout:   importTimeout,
	}, nil
}

func mustCaller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	c, ok := CallerFrom(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
	}
	return c, ok
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("id", "invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func (h *CandidatesHandler) tooLarge(w http.ResponseWriter, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeErrorMessage(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
	return true
}

// Upload imports a workbook sent either as multipart field "file" or as the
// raw request body.
func (h *CandidatesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	if h.timeout > 0 {
		// a large batch hashes one password per row and outlives the
		// server-wide deadlines
		rc := http.NewResponseController(w)
		deadline := time.Now().Add(h.timeout)
		if err := rc.SetReadDeadline(deadline); err != nil {
			logger.Warn("cannot extend upload read deadline", slog.Any("error", err))
		}
		if err := rc.SetWriteDeadline(deadline); err != nil {
			logger.Warn("cannot extend upload write deadline", slog.Any("error", err))
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			if h.tooLarge(w, err) {
				return
			}
			writeError(w, r, apperr.Validation("file", "upload must carry a \"file\" field: %v", err))
			return
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		if h.tooLarge(w, err) {
			return
		}
		writeError(w, r, apperr.Validation("file", "cannot read upload: %v", err))
		return
	}

	sum, err := h.importer.Import(r.Context(), caller, bytes.NewReader(data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, sum, http.StatusOK)
}

func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := models.CandidateFilter{Search: strings.TrimSpace(q.Get("q"))}
	if s := q.Get("status"); s != "" && s != "all" {
		f.Status = models.CandidateStatus(s)
		if !f.Status.Valid() {
			writeError(w, r, apperr.Validation("status", "unknown status %q", s))
			return
		}
	}

	// pagination: limit and offset params
	f.Limit = 50
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			f.Limit = v
		}
	}
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			f.Offset = v
		}
	}

	ctx := r.Context()
	items, err := h.store.ListCandidates(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountCandidates(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Candidate{}
	}

	writeJSON(w, map[string]any{
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
		"items":  items,
	}, http.StatusOK)
}

type candidateDetail struct {
	Candidate  *models.Candidate  `json:"candidate"`
	Interviews []models.Interview `json:"interviews"`
}

func (h *CandidatesHandler) detail(ctx context.Context, id int64) (*candidateDetail, error) {
	c, err := h.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("candidate %d: %w", id, apperr.ErrNotFound)
	}
	ivs, err := h.store.ListInterviewsByCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if ivs == nil {
		ivs = []models.Interview{}
	}
	return &candidateDetail{Candidate: c, Interviews: ivs}, nil
}

func (h *CandidatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.detail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

func (h *CandidatesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, s, http.StatusOK)
}

// Update applies a partial edit. Fields absent from the body are left
// alone; "age": null clears the age. A new phone number also becomes the
// candidate's portal password.
func (h *CandidatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	if err := caller.Require(auth.CapEditCandidates); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEditBody))
	if err != nil {
		writeError(w, r, apperr.Validation("body", "read body: %v", err))
		return
	}
	edit, err := h.parseEdit(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// hash before the transaction so bcrypt does not hold the connection
	var phoneHash string
	if edit.phone != nil {
		if phoneHash, err = auth.HashPassword(*edit.phone); err != nil {
			writeError(w, r, apperr.Persistence("hash password", err))
			return
		}
	}

	ctx := r.Context()
	err = h.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("candidate %d: %w", id, apperr.ErrNotFound)
		}

		emailChanged := edit.email != nil && *edit.email != c.Email
		phoneChanged := edit.phone != nil && *edit.phone != c.Phone
		edit.apply(c)

		if err := tx.UpdateCandidate(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("email %s belongs to another candidate", c.Email)
			}
			return err
		}
		if c.AccountID == nil {
			return nil
		}
		if emailChanged {
			if err := tx.UpdateAccountUsername(ctx, *c.AccountID, c.Email); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return apperr.Conflict("username %s is taken", c.Email)
				}
				return err
			}
		}
		if phoneChanged {
			if err := tx.UpdateAccountPassword(ctx, *c.AccountID, phoneHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, r, apperr.Persistence("update candidate", err))
		return
	}

	logger.Info("candidate updated", slog.Int64("caller", caller.AccountID), slog.Int64("candidate_id", id))
	d, err := h.detail(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

type candidateEdit struct {
	name            *string
	email           *string
	phone           *string
	age             **int
	experienceYears *int
	institute       *string
	experience      *[]models.ExperienceEntry
}

func (e *candidateEdit) apply(c *models.Candidate) {
	if e.name != nil {
		c.Name = *e.name
	}
	if e.email != nil {
		c.Email = *e.email
	}
	if e.phone != nil {
		c.Phone = *e.phone
	}
	if e.age != nil {
		c.Age = *e.age
	}
	if e.experienceYears != nil {
		c.ExperienceYears = *e.experienceYears
	}
	if e.institute != nil {
		c.Institute = *e.institute
	}
	if e.experience != nil {
		c.Experience = *e.experience
	}
}

func (h *CandidatesHandler) parseEdit(ctx context.Context, body []byte) (*candidateEdit, error) {
	keyErrs, err := h.schema.ValidateBytes(ctx, body)
	if err != nil {
		return nil, apperr.Validation("body", "invalid json: %v", err)
	}
	if len(keyErrs) > 0 {
		ve := apperr.Validation("body", "candidate update does not match schema")
		for _, ke := range keyErrs {
			ve.Details = append(ve.Details, strings.TrimSpace(ke.PropertyPath+" "+ke.Message))
		}
		return nil, ve
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Validation("body", "invalid json: %v", err)
	}

	e := &candidateEdit{}
	field := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return apperr.Validation(key, "%v", err)
		}
		return nil
	}

	if _, ok := raw["name"]; ok {
		var s string
		if err := field("name", &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, apperr.Validation("name", "must not be blank")
		}
		e.name = &s
	}
	if _, ok := raw["email"]; ok {
		var s string
		if err := field("email", &s); err != nil {
			return nil, err
		}
		email, err := normalize.Email(s)
		if err != nil {
			return nil, err
		}
		e.email = &email
	}
	if _, ok := raw["phone"]; ok {
		var s string
		if err := field("phone", &s); err != nil {
			return nil, err
		}
		phone, err := normalize.Phone(s, h.minDigits)
		if err != nil {
			return nil, err
		}
		e.phone = &phone
	}
	if _, ok := raw["age"]; ok {
		var age *int
		if err := field("age", &age); err != nil {
			return nil, err
		}
		e.age = &age
	}
	if _, ok := raw["experience_years"]; ok {
		var n int
		if err := field("experience_years", &n); err != nil {
			return nil, err
		}
		e.experienceYears = &n
	}
	if _, ok := raw["institute"]; ok {
		var s string
		if err := field("institute", &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		e.institute = &s
	}
	if _, ok := raw["experience"]; ok {
		var list []models.ExperienceEntry
		if err := field("experience", &list); err != nil {
			return nil, err
		}
		list = normalize.MergeExperience([]models.ExperienceEntry{}, list)
		e.experience = &list
	}
	return e, nil
}

// Delete removes the candidate, its interviews and its portal account.
func (h *CandidatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	if err := caller.Require(auth.CapDeleteCandidates); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("candidate %d: %w", id, apperr.ErrNotFound)
		}
		if err := tx.DeleteCandidate(ctx, id); err != nil {
			return err
		}
		if c.AccountID != nil {
			return tx.DeleteAccount(ctx, *c.AccountID)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, apperr.Persistence("delete candidate", err))
		return
	}

	logger.Info("candidate deleted", slog.Int64("caller", caller.AccountID), slog.Int64("candidate_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CandidatesHandler) Hire(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.workflow.Hire(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, c, http.StatusOK)
}
