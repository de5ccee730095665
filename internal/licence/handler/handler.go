// Package handler is the thin HTTP layer over the transition orchestrator.
// It translates requests into commands and domain errors into statuses; no
// business logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/eligibility"
	"larch/internal/licence/models"
	"larch/internal/licence/transition"
	"larch/internal/platform/middleware"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// TransitionService executes transition commands.
type TransitionService interface {
	Execute(ctx context.Context, cmd transition.Command) (*models.TransitionOutcome, error)
}

// ApplicationReader loads aggregates for the read endpoint.
type ApplicationReader interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
}

// AccountResolver resolves the target user named in an assignment request.
type AccountResolver interface {
	GetAccount(ctx context.Context, userID id.UserID) (*dirmodels.Account, error)
}

type Handler struct {
	transitions TransitionService
	reader      ApplicationReader
	directory   AccountResolver
	validator   middleware.TokenValidator
	logger      *slog.Logger
}

func New(transitions TransitionService, reader ApplicationReader, directory AccountResolver, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		transitions: transitions,
		reader:      reader,
		directory:   directory,
		validator:   validator,
		logger:      logger,
	}
}

// Register mounts the application routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications/{applicationID}", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/", h.handleGetApplication)
		r.Post("/decision", h.handleRecordDecision)
		r.Post("/assign", h.handleAssignRole)
		r.Post("/return-to-review", h.handleReturnToReview)
		r.Post("/return-to-applicant", h.handleReturnToApplicant)
		r.Post("/withdraw", h.handleWithdraw)
		r.Post("/revert-withdrawal", h.handleRevertWithdrawal)
	})
}

func (h *Handler) applicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "applicationID"))
}

// actor builds the acting user from the authenticated claims.
func (h *Handler) actor(r *http.Request) (eligibility.Actor, error) {
	userID, err := id.ParseUserID(middleware.GetUserID(r.Context()))
	if err != nil {
		return eligibility.Actor{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid subject claim")
	}
	accountType, err := id.ParseAccountType(middleware.GetAccountType(r.Context()))
	if err != nil {
		return eligibility.Actor{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid account type claim")
	}
	return eligibility.Actor{ID: userID, AccountType: accountType}, nil
}

type transitionResponse struct {
	Committed bool     `json:"committed"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, cmd transition.Command) {
	outcome, err := h.transitions.Execute(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := transitionResponse{Committed: outcome.IsSuccess()}
	for _, f := range outcome.SubFailures() {
		resp.Warnings = append(resp.Warnings, f.String())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		RequestedStatus string `json:"requested_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	status, err := id.ParseFellingStatus(body.RequestedStatus)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.execute(w, r, transition.Command{
		ApplicationID:   applicationID,
		ActingUser:      actor,
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: status,
	})
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		Role   string `json:"role"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	role, err := id.ParseAssignedRole(body.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	targetID, err := id.ParseUserID(body.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	target, err := h.directory.GetAccount(r.Context(), targetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.execute(w, r, transition.Command{
		ApplicationID: applicationID,
		ActingUser:    actor,
		Kind:          eligibility.TransitionAssignRole,
		TargetRole:    role,
		TargetUser:    eligibility.Actor{ID: target.ID, AccountType: target.Type},
	})
}

func (h *Handler) handleReturnToReview(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, eligibility.TransitionReturnToPreviousStage)
}

func (h *Handler) handleReturnToApplicant(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, eligibility.TransitionReturnToApplicant)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request, kind eligibility.TransitionKind) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		CaseNote string `json:"case_note"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
	}
	h.execute(w, r, transition.Command{
		ApplicationID: applicationID,
		ActingUser:    actor,
		Kind:          kind,
		CaseNote:      body.CaseNote,
	})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleBare(w, r, eligibility.TransitionWithdraw)
}

func (h *Handler) handleRevertWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.handleBare(w, r, eligibility.TransitionRevertWithdrawal)
}

func (h *Handler) handleBare(w http.ResponseWriter, r *http.Request, kind eligibility.TransitionKind) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.execute(w, r, transition.Command{
		ApplicationID: applicationID,
		ActingUser:    actor,
		Kind:          kind,
	})
}

type assignmentView struct {
	Role   string `json:"role"`
	UserID string `json:"user_id"`
}

type applicationView struct {
	ID            string           `json:"id"`
	Reference     string           `json:"reference"`
	Region        string           `json:"region,omitempty"`
	CurrentStatus string           `json:"current_status"`
	Assignments   []assignmentView `json:"assignments,omitempty"`
	OnRegister    bool             `json:"on_public_register"`
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.reader.Get(r.Context(), applicationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := applicationView{
		ID:         app.ID.String(),
		Reference:  app.Reference,
		Region:     app.Region,
		OnRegister: app.PublicRegister.OnConsultationRegister() || app.PublicRegister.OnDecisionRegister(),
	}
	if current, ok := app.CurrentStatus(); ok {
		view.CurrentStatus = current.String()
	}
	for _, entry := range app.AssignmentHistory {
		if entry.Open() {
			view.Assignments = append(view.Assignments, assignmentView{
				Role:   entry.Role.String(),
				UserID: entry.UserID.String(),
			})
		}
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.logger != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	if h.logger != nil && toHTTPStatus(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(toHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(code)})
}

func toHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
