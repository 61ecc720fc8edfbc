package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kindling-crm/be-donor-pipeline/internal/service"
)

// CreateDecision handles create decision HTTP requests
func (h *HTTPHandler) CreateDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.decisions.CreateDecision(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetDecision handles get decision HTTP requests. Accepts either a decision
// id or a journal_contact_id; the contact form returns null when the
// membership has no live decision.
func (h *HTTPHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		view, err := h.decisions.GetDecision(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	journalContactID := r.URL.Query().Get("journal_contact_id")
	if journalContactID == "" {
		http.Error(w, "Decision ID or journal contact ID is required", http.StatusBadRequest)
		return
	}

	view, err := h.decisions.GetDecisionForContact(r.Context(), journalContactID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateDecision handles decision update HTTP requests
func (h *HTTPHandler) UpdateDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.UpdateDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.decisions.UpdateDecision(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteDecision handles decision delete HTTP requests
func (h *HTTPHandler) DeleteDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.decisions.DeleteDecision(r.Context(), req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DecisionHistory handles decision history HTTP requests. Accepts either a
// decision_id or a journal_contact_id; history survives deletion of the
// live decision.
func (h *HTTPHandler) DecisionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if decisionID := r.URL.Query().Get("decision_id"); decisionID != "" {
		history, err := h.decisions.History(r.Context(), decisionID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"history": history,
			"total":   len(history),
		})
		return
	}

	journalContactID := r.URL.Query().Get("journal_contact_id")
	if journalContactID == "" {
		http.Error(w, "Decision ID or journal contact ID is required", http.StatusBadRequest)
		return
	}

	history, err := h.decisions.ContactHistory(r.Context(), journalContactID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"total":   len(history),
	})
}
