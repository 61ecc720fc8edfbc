package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/service"
)

// RecordEvent handles stage event recording HTTP requests
func (h *HTTPHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.journals.RecordEvent(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles event log listing HTTP requests
func (h *HTTPHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	journalContactID := r.URL.Query().Get("journal_contact_id")
	if journalContactID == "" {
		http.Error(w, "Journal contact ID is required", http.StatusBadRequest)
		return
	}

	events, err := h.journals.ListEvents(r.Context(), journalContactID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

// Board handles pipeline board HTTP requests
func (h *HTTPHandler) Board(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	journalContactID := r.URL.Query().Get("journal_contact_id")
	if journalContactID == "" {
		http.Error(w, "Journal contact ID is required", http.StatusBadRequest)
		return
	}

	board, err := h.journals.Board(r.Context(), journalContactID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// TransitionCheck handles advisory transition check HTTP requests
func (h *HTTPHandler) TransitionCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	journalContactID := r.URL.Query().Get("journal_contact_id")
	targetStage := r.URL.Query().Get("target_stage")
	if journalContactID == "" || targetStage == "" {
		http.Error(w, "Journal contact ID and target stage are required", http.StatusBadRequest)
		return
	}

	check, err := h.journals.CheckTransition(r.Context(), journalContactID, targetStage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// ── Next steps ────────────────────────────────────────────────────────────────

// NextSteps routes GET (list) and POST (create) on /api/v1/next-steps.
func (h *HTTPHandler) NextSteps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listNextSteps(w, r)
	case http.MethodPost:
		h.createNextStep(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createNextStep(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNextStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	step, err := h.journals.AddNextStep(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, step)
}

func (h *HTTPHandler) listNextSteps(w http.ResponseWriter, r *http.Request) {
	journalContactID := r.URL.Query().Get("journal_contact_id")
	if journalContactID == "" {
		http.Error(w, "Journal contact ID is required", http.StatusBadRequest)
		return
	}

	steps, err := h.journals.ListNextSteps(r.Context(), journalContactID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"next_steps": steps,
		"total":      len(steps),
	})
}

// UpdateNextStep handles next step edit HTTP requests
func (h *HTTPHandler) UpdateNextStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID       string  `json:"id"`
		Title    *string `json:"title,omitempty"`
		DueOn    *string `json:"due_on,omitempty"`
		Position *int    `json:"position,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var dueOn *time.Time
	if req.DueOn != nil {
		due, err := time.Parse("2006-01-02", *req.DueOn)
		if err != nil {
			http.Error(w, "Invalid due_on, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		dueOn = &due
	}

	step, err := h.journals.UpdateNextStep(r.Context(), req.ID, req.Title, dueOn, req.Position)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// CompleteNextStep handles next step completion HTTP requests
func (h *HTTPHandler) CompleteNextStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID        string `json:"id"`
		Completed *bool  `json:"completed,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	step, err := h.journals.CompleteNextStep(r.Context(), req.ID, completed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// DeleteNextStep handles next step delete HTTP requests
func (h *HTTPHandler) DeleteNextStep(w http.ResponseWriter, r *http.Request) {
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

	if err := h.journals.DeleteNextStep(r.Context(), req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
