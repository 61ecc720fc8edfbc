package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	pledges   *service.PledgeService
	journals  *service.JournalService
	decisions *service.DecisionService
	dashboard *service.DashboardService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(pledges *service.PledgeService, journals *service.JournalService, decisions *service.DecisionService, dashboard *service.DashboardService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		pledges:   pledges,
		journals:  journals,
		decisions: decisions,
		dashboard: dashboard,
		log:       log,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps coded errors onto HTTP statuses. Internal errors hide
// their detail from the client.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	writeJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  string(errors.CodeOf(err)),
	})
}

func today() time.Time {
	return time.Now().UTC()
}

// Health handles health check requests
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Pledges ──────────────────────────────────────────────────────────────────

// Pledges routes GET (list) and POST (create) on /api/v1/pledges.
func (h *HTTPHandler) Pledges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPledges(w, r)
	case http.MethodPost:
		h.createPledge(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createPledge(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := h.pledges.CreatePledge(r.Context(), &req, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *HTTPHandler) listPledges(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	contactID := r.URL.Query().Get("contact_id")
	status := r.URL.Query().Get("status")

	var contactIDPtr *string
	if contactID != "" {
		contactIDPtr = &contactID
	}
	var statusPtr *string
	if status != "" {
		statusPtr = &status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	cards, total, err := h.pledges.ListPledges(r.Context(), ownerID, contactIDPtr, statusPtr, page, pageSize, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pledges":  cards,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetPledge handles get pledge HTTP requests
func (h *HTTPHandler) GetPledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pledgeID := r.URL.Query().Get("id")
	ownerID := r.URL.Query().Get("owner_id")
	if pledgeID == "" || ownerID == "" {
		http.Error(w, "Pledge ID and Owner ID are required", http.StatusBadRequest)
		return
	}

	card, err := h.pledges.GetPledge(r.Context(), pledgeID, ownerID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ChangePledgeStatus handles pledge status change HTTP requests
func (h *HTTPHandler) ChangePledgeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		PledgeID string `json:"pledge_id"`
		OwnerID  string `json:"owner_id"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.pledges.ChangeStatus(r.Context(), req.PledgeID, req.OwnerID, req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}

	card, err := h.pledges.GetPledge(r.Context(), req.PledgeID, req.OwnerID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// LinkGift handles gift linking HTTP requests
func (h *HTTPHandler) LinkGift(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.LinkGiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pledge, err := h.pledges.LinkGift(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pledge)
}

// DeletePledge handles delete pledge HTTP requests
func (h *HTTPHandler) DeletePledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		PledgeID string `json:"pledge_id"`
		OwnerID  string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.pledges.DeletePledge(r.Context(), req.PledgeID, req.OwnerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
