package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/normalize"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

type AuthHandler struct {
	accountRepo   repository.AccountRepo
	candidateRepo repository.CandidateRepo
	issuer        *auth.Issuer
	minDigits     int
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ar repository.AccountRepo, cr repository.CandidateRepo, issuer *auth.Issuer, minPhoneDigits int) *AuthHandler {
	return &AuthHandler{accountRepo: ar, candidateRepo: cr, issuer: issuer, minDigits: minPhoneDigits}
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type portalRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type authResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
}

const badCredentials = "Credentials not found"

// Signin authenticates staff and admin accounts, and candidates using their
// email and phone digits.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Missing fields")
		return
	}

	account, err := h.accountRepo.GetAccountByUsername(r.Context(), strings.ToLower(req.Username))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if account == nil || !auth.CheckPassword(account.PasswordHash, req.Password) {
		writeErrorMessage(w, http.StatusUnauthorized, badCredentials)
		return
	}

	h.issue(w, r, account)
}

// Portal signs a candidate in with the email and phone number from their
// application. The phone is normalized before comparison.
func (h *AuthHandler) Portal(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	email, err := normalize.Email(req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	phone, err := normalize.Phone(req.Phone, h.minDigits)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	c, err := h.candidateRepo.GetCandidateByEmail(ctx, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil || c.AccountID == nil {
		writeErrorMessage(w, http.StatusUnauthorized, badCredentials)
		return
	}
	account, err := h.accountRepo.GetAccountByID(ctx, *c.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if account == nil || account.Role != models.RoleCandidate || !auth.CheckPassword(account.PasswordHash, phone) {
		writeErrorMessage(w, http.StatusUnauthorized, badCredentials)
		return
	}

	h.issue(w, r, account)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, account *models.Account) {
	token, err := h.issuer.Issue(account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("signed in", slog.Int64("account_id", account.ID), slog.String("role", string(account.Role)))
	writeJSON(w, authResponse{Token: token, Role: account.Role}, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}
