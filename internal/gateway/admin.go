package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/essenca/essenca-gateway/internal/auth"
	"github.com/essenca/essenca-gateway/internal/ledger"
)

// RequireAdmin gates the administrative surface; metered users get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "Administrator privileges required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleTestProvider fires a trivial generation to verify the configured
// backend's credentials.
func (h *Handler) HandleTestProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.Ping(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "test_failed", "API Error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "API key is valid and connection is successful!",
	})
}

type setBalanceRequest struct {
	Balance int `json:"balance"`
}

func (h *Handler) HandleSetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req setBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}

	if err := h.ledger.SetBalance(r.Context(), userID, req.Balance); err != nil {
		if errors.Is(err, ledger.ErrNoSuchUser) {
			writeError(w, http.StatusNotFound, "user_not_found", "User not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to set balance.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Balance updated.",
	})
}

const topUsersLimit = 10

func (h *Handler) HandleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
		return
	}

	total, err := h.ledger.TotalTokensUsed(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to read usage totals.")
		return
	}
	byAction, err := h.ledger.UsageByAction(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to read usage by action.")
		return
	}
	topUsers, err := h.ledger.TopUsers(ctx, topUsersLimit, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to read top users.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_tokens_used": total,
		"usage_by_action":   byAction,
		"top_users":         topUsers,
		"from":              from,
		"to":                to,
	})
}

func (h *Handler) HandleAnalyticsDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
		return
	}

	daily, err := h.ledger.DailyUsage(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to read daily usage.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"daily": daily,
		"from":  from,
		"to":    to,
	})
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30) // Default: last 30 days
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' date format (use RFC3339)")
		}
		from = parsed
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' date format (use RFC3339)")
		}
		to = parsed
	}

	return from, to, nil
}
