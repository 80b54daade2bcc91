package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/config"
	"github.com/garnizeh/recruit/internal/db"
	"github.com/garnizeh/recruit/internal/export"
	"github.com/garnizeh/recruit/internal/importer"
	"github.com/garnizeh/recruit/internal/repository/sqlite"
	"github.com/garnizeh/recruit/internal/scheduling"
	"github.com/garnizeh/recruit/internal/workflow"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, db *db.DB) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository and pipelines
	repo := sqlite.New(db, logger)
	scheduler := scheduling.New(repo, logger)
	wf := workflow.New(repo, scheduler, logger, workflow.WithSecondRoundDelay(cfg.Interviews.SecondRoundDelay))
	im := importer.New(repo, logger,
		importer.WithMinPhoneDigits(cfg.Import.MinPhoneDigits),
		importer.WithSheet(cfg.Import.Sheet),
	)
	exporter := export.New(repo, wf, logger)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenDuration)

	// Create handlers
	systemHandler := &SystemHandler{DB: db.GetConn()}
	authHandler := NewAuthHandler(repo, repo, issuer, cfg.Import.MinPhoneDigits)
	candidatesHandler, err := NewCandidatesHandler(repo, im, wf, cfg.Import.MaxUploadBytes, cfg.Import.MinPhoneDigits, cfg.Import.Timeout)
	if err != nil {
		return nil, fmt.Errorf("candidates handler: %w", err)
	}
	interviewsHandler := NewInterviewsHandler(scheduler, wf)
	exportHandler := NewExportHandler(exporter)
	meHandler := NewMeHandler(repo, repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/auth/portal", authHandler.Portal).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddleware(issuer))

	gate := func(c auth.Capability, h http.HandlerFunc) http.Handler {
		return RequireCapability(c)(h)
	}

	// Auth endpoints
	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")

	// Candidate portal
	apiV1.Handle("/me", gate(auth.CapViewOwnStatus, meHandler.Me)).Methods("GET")

	// Candidates
	apiV1.Handle("/candidates/import", gate(auth.CapImportCandidates, candidatesHandler.Upload)).Methods("POST")
	apiV1.Handle("/candidates", gate(auth.CapViewCandidates, candidatesHandler.List)).Methods("GET")
	apiV1.Handle("/candidates/stats", gate(auth.CapViewCandidates, candidatesHandler.Stats)).Methods("GET")
	apiV1.Handle("/candidates/{id:[0-9]+}", gate(auth.CapViewCandidates, candidatesHandler.Get)).Methods("GET")
	apiV1.Handle("/candidates/{id:[0-9]+}", gate(auth.CapEditCandidates, candidatesHandler.Update)).Methods("PUT", "PATCH")
	apiV1.Handle("/candidates/{id:[0-9]+}", gate(auth.CapDeleteCandidates, candidatesHandler.Delete)).Methods("DELETE")
	apiV1.Handle("/candidates/{id:[0-9]+}/hire", gate(auth.CapHireCandidates, candidatesHandler.Hire)).Methods("POST")

	// Interviews
	apiV1.Handle("/interviews", gate(auth.CapScheduleInterviews, interviewsHandler.Schedule)).Methods("POST")
	apiV1.Handle("/interviews/upcoming", gate(auth.CapViewCandidates, interviewsHandler.Upcoming)).Methods("GET")
	apiV1.Handle("/interviews/completed", gate(auth.CapViewCandidates, interviewsHandler.Completed)).Methods("GET")
	apiV1.Handle("/interviews/sweep", gate(auth.CapDecideInterviews, interviewsHandler.Sweep)).Methods("POST")
	apiV1.Handle("/interviews/{id:[0-9]+}/decision", gate(auth.CapDecideInterviews, interviewsHandler.Decide)).Methods("POST")
	apiV1.Handle("/interviews/{id:[0-9]+}/second-round", gate(auth.CapDecideInterviews, interviewsHandler.SecondRound)).Methods("POST")

	// Exports
	apiV1.Handle("/export/phones.txt", gate(auth.CapExportData, exportHandler.Phones)).Methods("GET")
	apiV1.Handle("/export/candidates.xlsx", gate(auth.CapExportData, exportHandler.Candidates)).Methods("GET")

	return r, nil
}
