package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veritaslabs/veritas/internal/domain"
	"github.com/veritaslabs/veritas/internal/service"
)

type FactHandler struct {
	svc *service.FactService
}

func NewFactHandler(svc *service.FactService) *FactHandler {
	return &FactHandler{svc: svc}
}

type createFactRequest struct {
	Claim        string  `json:"claim"`
	SourcePostID *string `json:"source_post_id,omitempty"`
	SourceUserID *string `json:"source_user_id,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

type createFactResponse struct {
	*domain.Fact
	SimilarFactID *uuid.UUID `json:"similar_fact_id,omitempty"`
	Similarity    float64    `json:"similarity,omitempty"`
}

func (h *FactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFactRequest
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

	fact := &domain.Fact{
		Claim:        req.Claim,
		SourcePostID: sourcePostID,
		SourceUserID: sourceUserID,
		Confidence:   req.Confidence,
	}

	result, err := h.svc.Create(r.Context(), fact)
	if err != nil {
		if errors.Is(err, service.ErrFactClaimEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create fact")
		return
	}

	resp := createFactResponse{Fact: fact}
	if result != nil {
		resp.SimilarFactID = result.SimilarFactID
		resp.Similarity = result.Similarity
	}
	writeJSON(w, http.StatusCreated, resp)
}

type getFactResponse struct {
	*domain.Fact
	History []domain.ConfidenceUpdate `json:"confidence_history,omitempty"`
}

func (h *FactHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	fact, history, err := h.svc.Get(r.Context(), id, queryInt(r, "history_limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrFactNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get fact")
		return
	}

	writeJSON(w, http.StatusOK, getFactResponse{Fact: fact, History: history})
}

type challengeFactRequest struct {
	Reason string `json:"reason,omitempty"`
}

type factReactionResponse struct {
	FactID         uuid.UUID `json:"fact_id"`
	OldConfidence  float64   `json:"old_confidence"`
	NewConfidence  float64   `json:"new_confidence"`
	CitationCount  int       `json:"citation_count,omitempty"`
	ChallengeCount int       `json:"challenge_count,omitempty"`
}

func (h *FactHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	var req challengeFactRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rec, count, err := h.svc.Challenge(r.Context(), id, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrFactNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to challenge fact")
		return
	}

	writeJSON(w, http.StatusOK, factReactionResponse{
		FactID:         id,
		OldConfidence:  rec.OldConfidence,
		NewConfidence:  rec.NewConfidence,
		ChallengeCount: count,
	})
}

type citeFactRequest struct {
	ContextPostID *string `json:"context_post_id,omitempty"`
}

func (h *FactHandler) Cite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	var req citeFactRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	contextPostID, ok := parseOptionalUUID(req.ContextPostID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid context_post_id")
		return
	}

	rec, count, err := h.svc.Cite(r.Context(), id, contextPostID)
	if err != nil {
		if errors.Is(err, service.ErrFactNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to cite fact")
		return
	}

	writeJSON(w, http.StatusOK, factReactionResponse{
		FactID:        id,
		OldConfidence: rec.OldConfidence,
		NewConfidence: rec.NewConfidence,
		CitationCount: count,
	})
}

func (h *FactHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	results, err := h.svc.Search(r.Context(), query, queryInt(r, "limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrFactClaimEmpty) {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to search facts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"facts": results, "count": len(results)})
}

func (h *FactHandler) LowConfidence(w http.ResponseWriter, r *http.Request) {
	facts, err := h.svc.LowConfidence(r.Context(), queryFloat(r, "threshold", 0), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list low-confidence facts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}

func (h *FactHandler) Established(w http.ResponseWriter, r *http.Request) {
	facts, err := h.svc.Established(r.Context(), queryFloat(r, "threshold", 0), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list established facts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}

func (h *FactHandler) DependentArguments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	dependents, err := h.svc.DependentArguments(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrFactNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list dependent arguments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"arguments": dependents, "count": len(dependents)})
}
