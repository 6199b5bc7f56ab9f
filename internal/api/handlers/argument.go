package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veritaslabs/veritas/internal/domain"
	"github.com/veritaslabs/veritas/internal/service"
)

type ArgumentHandler struct {
	svc *service.ArgumentService
}

func NewArgumentHandler(svc *service.ArgumentService) *ArgumentHandler {
	return &ArgumentHandler{svc: svc}
}

type createArgumentRequest struct {
	Content      string  `json:"content"`
	Summary      string  `json:"summary,omitempty"`
	SourcePostID *string `json:"source_post_id,omitempty"`
	SourceUserID *string `json:"source_user_id,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

func (h *ArgumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createArgumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourcePostID, ok := parseOptionalUUID(req.SourcePostID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid source_post_id")
		return
	}
	sourceUserID, ok := parseOptionalUUID(req.SourceUserID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid source_user_id")
		return
	}

	argument := &domain.Argument{
		Content:      req.Content,
		Summary:      req.Summary,
		SourcePostID: sourcePostID,
		SourceUserID: sourceUserID,
		Confidence:   req.Confidence,
	}

	if err := h.svc.Create(r.Context(), argument); err != nil {
		if errors.Is(err, service.ErrArgumentContentEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create argument")
		return
	}

	writeJSON(w, http.StatusCreated, argument)
}

type getArgumentResponse struct {
	*domain.Argument
	History []domain.ConfidenceUpdate `json:"confidence_history,omitempty"`
}

func (h *ArgumentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	argument, history, err := h.svc.Get(r.Context(), id, queryInt(r, "history_limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrArgumentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get argument")
		return
	}

	writeJSON(w, http.StatusOK, getArgumentResponse{Argument: argument, History: history})
}

type updateConfidenceRequest struct {
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
	InteractionID *string `json:"interaction_id,omitempty"`
}

func (h *ArgumentHandler) UpdateConfidence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	var req updateConfidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	interactionID, ok := parseOptionalUUID(req.InteractionID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid interaction_id")
		return
	}

	result, err := h.svc.UpdateConfidence(r.Context(), id, req.Confidence, req.Reason, interactionID)
	if err != nil {
		if errors.Is(err, service.ErrArgumentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update confidence")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type reactionRequest struct {
	UserID        string  `json:"user_id"`
	InteractionID *string `json:"interaction_id,omitempty"`
}

func (h *ArgumentHandler) Support(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.svc.Support)
}

func (h *ArgumentHandler) Refute(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.svc.Refute)
}

func (h *ArgumentHandler) react(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, userID uuid.UUID, interactionID *uuid.UUID) (*service.ConfidenceUpdateResult, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	interactionID, ok := parseOptionalUUID(req.InteractionID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid interaction_id")
		return
	}

	result, err := apply(r.Context(), id, userID, interactionID)
	if err != nil {
		if errors.Is(err, service.ErrArgumentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record reaction")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type linkToFactRequest struct {
	FactID   string   `json:"fact_id"`
	Strength *float64 `json:"strength,omitempty"`
}

type linkToFactResponse struct {
	*domain.ArgumentFactLink
	EffectiveConfidence float64 `json:"effective_confidence"`
}

func (h *ArgumentHandler) LinkToFact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	var req linkToFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	factID, err := uuid.Parse(req.FactID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact_id")
		return
	}

	strength := 1.0
	if req.Strength != nil {
		strength = *req.Strength
	}

	link, effective, err := h.svc.LinkToFact(r.Context(), id, factID, strength)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStrength):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrArgumentNotFound), errors.Is(err, service.ErrFactNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to link argument to fact")
		}
		return
	}

	writeJSON(w, http.StatusOK, linkToFactResponse{ArgumentFactLink: link, EffectiveConfidence: effective})
}

func (h *ArgumentHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	members, err := h.svc.ClusterArguments(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrArgumentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get cluster")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"arguments": members, "count": len(members)})
}

func (h *ArgumentHandler) Top(w http.ResponseWriter, r *http.Request) {
	arguments, err := h.svc.TopArguments(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list top arguments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"arguments": arguments, "count": len(arguments)})
}

// parseOptionalUUID parses a nullable uuid string. Returns ok=false only for
// present-but-malformed values.
func parseOptionalUUID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}
