// HTTP handlers for the Angel API endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/venturelaunch/angel/internal/flow"
	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/util"
)

// itemRequest is the payload for navigation operations.
type itemRequest struct {
	ItemID string `json:"item_id"`
}

// promptRequest is the payload for prompt dismissal.
type promptRequest struct {
	PromptID string `json:"prompt_id"`
}

// declarationRequest is the payload for submitting a completion declaration.
type declarationRequest struct {
	TaskID    string   `json:"task_id"`
	Summary   string   `json:"summary"`
	Decisions []string `json:"decisions,omitempty"`
	Actions   []string `json:"actions,omitempty"`
	Documents []string `json:"documents,omitempty"`
	NextSteps []string `json:"next_steps,omitempty"`
}

// progressRequest is the payload for externally supplied completion ratios.
type progressRequest struct {
	Ratios []flow.CompletionRatio `json:"ratios"`
}

// loadSession resolves the {id} path value to a stored session, writing the
// error response itself when the session cannot be served.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	id := r.PathValue("id")
	session, err := s.store.GetSession(id)
	if err != nil {
		slog.Error("Server.loadSession: store lookup failed", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return nil, false
	}
	if session == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return nil, false
	}
	return session, true
}

func (s *Server) enrollHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.enrollHandler: processing enrollment", "method", r.Method, "path", r.URL.Path)

	var req models.EnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.enrollHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	canonicalRecipient, err := s.msgService.ValidateAndCanonicalizeRecipient(req.Recipient)
	if err != nil {
		slog.Warn("Server.enrollHandler: recipient validation failed", "error", err, "recipient", req.Recipient)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if existing, err := s.store.GetSessionByRecipient(canonicalRecipient); err != nil {
		slog.Error("Server.enrollHandler: recipient lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check existing sessions"))
		return
	} else if existing != nil && existing.Status == models.SessionStatusActive {
		writeJSONResponse(w, http.StatusConflict, models.Error("Recipient already has an active session"))
		return
	}

	now := time.Now()
	session := &models.Session{
		ID:           util.GenerateSessionID(),
		Recipient:    canonicalRecipient,
		Name:         req.Name,
		Status:       models.SessionStatusActive,
		CurrentPhase: models.PhaseIntake,
		EnrolledAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.SaveSession(*session); err != nil {
		slog.Error("Server.enrollHandler: failed to save session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}

	if err := s.respHandler.RegisterHook(session.Recipient, s.journeyHook(session.ID)); err != nil {
		slog.Error("Server.enrollHandler: failed to register response hook", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register response handler"))
		return
	}

	question, err := s.journey.Start(r.Context(), session)
	if err != nil {
		slog.Error("Server.enrollHandler: failed to start journey", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start onboarding"))
		return
	}
	if err := s.msgService.SendMessage(r.Context(), session.Recipient, question); err != nil {
		slog.Error("Server.enrollHandler: failed to send first question", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send first question"))
		return
	}

	slog.Info("Server.enrollHandler: session enrolled", "sessionID", session.ID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Session enrolled", session))
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		slog.Error("Server.listSessionsHandler: failed to list sessions", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list sessions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

func (s *Server) questionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if session.ActiveQuestion == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No active question"))
		return
	}

	question := models.Question{
		SessionID: session.ID,
		Text:      session.ActiveQuestion,
		Decision:  flow.Resolve(session.ActiveQuestion),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(question))
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Answer body cannot be empty"))
		return
	}

	reply, err := s.journey.HandleAnswer(r.Context(), session, req.Body, time.Now())
	if err != nil {
		slog.Error("Server.answerHandler: failed to handle answer", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process answer"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.RecordedWithMessage(reply))
}

func (s *Server) navigationHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		slog.Error("Server.navigationHandler: failed to load navigation", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load navigation"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nm.Items()))
}

// navigationError maps navigation failures onto HTTP status codes.
func navigationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownItem):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown navigation item"))
	case errors.Is(err, models.ErrLockedItem):
		writeJSONResponse(w, http.StatusConflict, models.Error("Item is locked until earlier phases are completed"))
	default:
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Navigation update failed"))
	}
}

func (s *Server) focusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("item_id is required"))
		return
	}

	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load navigation"))
		return
	}
	if err := s.controller.FocusItem(r.Context(), session.ID, nm, req.ItemID); err != nil {
		slog.Warn("Server.focusHandler: focus rejected", "error", err, "sessionID", session.ID, "itemID", req.ItemID)
		navigationError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nm.Items()))
}

func (s *Server) expandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("item_id is required"))
		return
	}

	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load navigation"))
		return
	}
	if err := nm.ToggleExpand(req.ItemID); err != nil {
		navigationError(w, err)
		return
	}
	if err := s.controller.SaveNavigation(r.Context(), session.ID, nm); err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save navigation"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nm.Items()))
}

func (s *Server) completeTaskHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("item_id is required"))
		return
	}

	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load navigation"))
		return
	}
	if err := s.controller.CompleteTask(r.Context(), session.ID, nm, req.ItemID); err != nil {
		slog.Warn("Server.completeTaskHandler: completion rejected", "error", err, "sessionID", session.ID, "taskID", req.ItemID)
		navigationError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nm.Items()))
}

func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	indicators, err := s.controller.Progress(r.Context(), session.ID)
	if err != nil {
		slog.Error("Server.progressHandler: failed to load progress", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load progress"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(indicators))
}

func (s *Server) applyProgressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.controller.ApplyProgress(r.Context(), session.ID, req.Ratios); err != nil {
		slog.Error("Server.applyProgressHandler: failed to apply progress", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to apply progress"))
		return
	}
	indicators, err := s.controller.Progress(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load progress"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(indicators))
}

// loadPromptEvaluator builds an evaluator seeded with the session's
// previously dismissed prompt IDs.
func (s *Server) loadPromptEvaluator(r *http.Request, sessionID string) (*flow.PromptEvaluator, error) {
	evaluator := flow.NewPromptEvaluator()
	serialized, err := s.stateManager.GetStateData(r.Context(), sessionID, models.FlowTypeOnboarding, models.DataKeyDismissedPrompts)
	if err != nil {
		return nil, err
	}
	if serialized != "" {
		var ids []string
		if err := json.Unmarshal([]byte(serialized), &ids); err != nil {
			slog.Warn("Server.loadPromptEvaluator: invalid dismissed prompt data", "sessionID", sessionID)
		} else {
			evaluator.RestoreDismissed(ids)
		}
	}
	return evaluator, nil
}

func (s *Server) promptsHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	evaluator, err := s.loadPromptEvaluator(r, session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load prompt state"))
		return
	}
	snapshot, err := s.controller.Progress(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load progress"))
		return
	}
	prompts := evaluator.Evaluate(session.CurrentPhase, snapshot)
	writeJSONResponse(w, http.StatusOK, models.Success(prompts))
}

func (s *Server) dismissPromptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PromptID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("prompt_id is required"))
		return
	}

	evaluator, err := s.loadPromptEvaluator(r, session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load prompt state"))
		return
	}
	evaluator.Dismiss(req.PromptID)

	serialized, err := json.Marshal(evaluator.DismissedIDs())
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save prompt state"))
		return
	}
	if err := s.stateManager.SetStateData(r.Context(), session.ID, models.FlowTypeOnboarding,
		models.DataKeyDismissedPrompts, string(serialized)); err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save prompt state"))
		return
	}

	slog.Info("Server.dismissPromptHandler: prompt dismissed", "sessionID", session.ID, "promptID", req.PromptID)
	writeJSONResponse(w, http.StatusOK, models.RecordedWithMessage("Prompt dismissed"))
}

func (s *Server) declareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req declarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.TaskID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("task_id is required"))
		return
	}

	draft := flow.NewDeclarationDraft(session.ID, req.TaskID)
	draft.Summary = req.Summary
	fillDraftList(draft, flow.ListDecisions, req.Decisions)
	fillDraftList(draft, flow.ListActions, req.Actions)
	fillDraftList(draft, flow.ListDocuments, req.Documents)
	fillDraftList(draft, flow.ListNextSteps, req.NextSteps)

	declaration, err := draft.Submit(time.Now())
	if err != nil {
		if errors.Is(err, models.ErrEmptySummary) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("A summary is required to declare completion"))
			return
		}
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load navigation"))
		return
	}
	if err := s.controller.CompleteTask(r.Context(), session.ID, nm, req.TaskID); err != nil {
		slog.Warn("Server.declareHandler: task completion rejected", "error", err, "sessionID", session.ID, "taskID", req.TaskID)
		navigationError(w, err)
		return
	}

	declaration.ID = util.GenerateDeclarationID()
	if err := s.store.AddDeclaration(*declaration); err != nil {
		slog.Error("Server.declareHandler: failed to store declaration", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store declaration"))
		return
	}

	slog.Info("Server.declareHandler: completion declared", "sessionID", session.ID, "taskID", req.TaskID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Completion declared", declaration))
}

// fillDraftList copies request entries into a draft list, growing it as needed.
func fillDraftList(draft *flow.DeclarationDraft, kind flow.ListKind, entries []string) {
	for i, entry := range entries {
		if i > 0 {
			draft.AddEntry(kind)
		}
		draft.SetEntry(kind, i, entry)
	}
}

func (s *Server) listDeclarationsHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	declarations, err := s.store.GetDeclarations(session.ID)
	if err != nil {
		slog.Error("Server.listDeclarationsHandler: failed to load declarations", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load declarations"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(declarations))
}

func (s *Server) roadmapHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	text, err := s.roadmapText(r, session)
	if err != nil {
		slog.Error("Server.roadmapHandler: failed to build roadmap", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build roadmap"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="roadmap.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Server.roadmapHandler: failed to write roadmap", "error", err)
	}
}

// roadmapText returns the stored roadmap if one was generated, otherwise a
// summary assembled from navigation state and declarations.
func (s *Server) roadmapText(r *http.Request, session *models.Session) (string, error) {
	stored, err := s.stateManager.GetStateData(r.Context(), session.ID, models.FlowTypeOnboarding, models.DataKeyRoadmapText)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}

	nm, err := s.controller.LoadNavigation(r.Context(), session.ID)
	if err != nil {
		return "", err
	}
	declarations, err := s.store.GetDeclarations(session.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if session.Name != "" {
		fmt.Fprintf(&b, "Business roadmap for %s\n", session.Name)
	} else {
		b.WriteString("Business roadmap\n")
	}
	fmt.Fprintf(&b, "Current phase: %s\n\n", session.CurrentPhase)

	for _, phase := range nm.Items() {
		fmt.Fprintf(&b, "%s [%s]\n", phase.Label, phase.Status)
		for _, task := range phase.Children {
			fmt.Fprintf(&b, "  - %s [%s]\n", task.Label, task.Status)
		}
	}

	if len(declarations) > 0 {
		b.WriteString("\nCompleted work\n")
		for _, d := range declarations {
			fmt.Fprintf(&b, "- %s: %s\n", d.TaskID, d.Summary)
			for _, step := range d.NextSteps {
				fmt.Fprintf(&b, "    next: %s\n", step)
			}
		}
	}

	return b.String(), nil
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.store.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to load receipts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load receipts"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
