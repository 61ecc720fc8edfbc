package handler

import (
	"net/http"
)

// NeedsAttention handles needs-attention summary HTTP requests
func (h *HTTPHandler) NeedsAttention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	summary, err := h.dashboard.NeedsAttention(r.Context(), ownerID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// LateDonations handles late donation queue HTTP requests
func (h *HTTPHandler) LateDonations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	late, err := h.dashboard.LateDonations(r.Context(), ownerID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"late":  late,
		"total": len(late),
	})
}

// AtRiskDonors handles at-risk donor queue HTTP requests
func (h *HTTPHandler) AtRiskDonors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	atRisk, err := h.dashboard.AtRiskDonors(r.Context(), ownerID, today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"at_risk": atRisk,
		"total":   len(atRisk),
	})
}

// ThankYouQueue handles thank-you queue HTTP requests
func (h *HTTPHandler) ThankYouQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	queue, err := h.dashboard.ThankYouQueue(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"thank_you": queue,
		"total":     len(queue),
	})
}
