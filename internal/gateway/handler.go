package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/essenca/essenca-gateway/internal/auth"
	"github.com/essenca/essenca-gateway/internal/dispatch"
	"github.com/essenca/essenca-gateway/internal/ledger"
	"github.com/essenca/essenca-gateway/internal/provider"
	"github.com/essenca/essenca-gateway/internal/settings"
	"github.com/essenca/essenca-gateway/internal/token"
)

const activityLimit = 50

type Handler struct {
	codec      *token.Codec
	users      auth.Store
	ledger     ledger.Store
	settings   settings.Store
	dispatcher *dispatch.Dispatcher
	cache      *redis.Client
	tracer     trace.Tracer
}

func NewHandler(
	codec *token.Codec,
	users auth.Store,
	ledgerStore ledger.Store,
	settingsStore settings.Store,
	dispatcher *dispatch.Dispatcher,
	cache *redis.Client,
	tracer trace.Tracer,
) *Handler {
	return &Handler{
		codec:      codec,
		users:      users,
		ledger:     ledgerStore,
		settings:   settingsStore,
		dispatcher: dispatcher,
		cache:      cache,
		tracer:     tracer,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "Username, email, and password are required.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, "username_exists", "Username already exists.")
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "email_exists", "Email address already in use.")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to create user.")
		}
		return
	}

	// New accounts get the configured starting grant, exactly once.
	controls, err := h.settings.Controls(r.Context())
	if err != nil {
		log.Printf("register: failed to load controls: %v", err)
		controls = settings.DefaultControls()
	}
	if err := h.ledger.AllocateInitial(r.Context(), user.ID, controls.InitialTokens); err != nil {
		log.Printf("register: failed to allocate initial balance for %s: %v", user.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User registered successfully.",
	})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusForbidden, "authentication_failed", "Invalid username or password.")
		return
	}

	signed, err := h.codec.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to issue token.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":             signed,
		"user_email":        user.Email,
		"user_display_name": user.Username,
	})
}

type processRequest struct {
	Action      string             `json:"action"`
	Content     string             `json:"content"`
	Message     string             `json:"message"`
	History     []provider.Message `json:"history"`
	UserProfile string             `json:"user_profile"`
}

func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}

	action, err := dispatch.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_action", "Invalid action specified.")
		return
	}

	dreq := &dispatch.Request{
		Action:      action,
		Content:     req.Content,
		Message:     req.Message,
		History:     req.History,
		UserProfile: req.UserProfile,
	}
	costKey := action.CostKey(dreq.PersonaActive())

	ctx, span := h.tracer.Start(ctx, "gateway.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", user.ID),
		attribute.String("action", costKey),
		attribute.String("provider", h.dispatcher.ProviderName()),
	)

	controls, err := h.settings.Controls(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to load action costs.")
		return
	}
	cost := controls.CostFor(costKey)

	// Admission: metered users must be able to afford the action before the
	// provider is ever contacted.
	if !user.IsAdmin() {
		balance, err := h.ledger.Balance(ctx, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to read balance.")
			return
		}
		if balance < cost {
			writeError(w, http.StatusPaymentRequired, "no_tokens", "You do not have enough tokens for this action.")
			return
		}
	}

	result, err := h.dispatcher.Generate(ctx, dreq)
	if err != nil {
		// Failed requests are free: no debit, no log entry.
		writeError(w, http.StatusInternalServerError, "ai_request_failed", err.Error())
		return
	}

	// Settle: debit then log, as a pair. Both are best-effort once the
	// provider has answered; a paid-for result is never withheld.
	balanceAfter := ledger.UnlimitedBalance
	var remaining any = "Unlimited"
	if !user.IsAdmin() {
		newBalance, ok, err := h.ledger.Debit(ctx, user.ID, cost)
		if err != nil {
			log.Printf("process: settlement debit failed for %s: %v", user.ID, err)
		} else if !ok {
			log.Printf("process: debit refused for %s, balance drained concurrently", user.ID)
		}
		balanceAfter = newBalance
		remaining = newBalance
	}

	entry := &ledger.Entry{
		UserID:       user.ID,
		Action:       costKey,
		TokensUsed:   cost,
		BalanceAfter: balanceAfter,
	}
	if err := h.ledger.Log(ctx, entry); err != nil {
		log.Printf("process: failed to log usage for %s: %v", user.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"result":           result,
		"tokens_remaining": remaining,
	})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	var balance any = "Unlimited"
	if !user.IsAdmin() {
		b, err := h.ledger.Balance(ctx, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to read balance.")
			return
		}
		balance = b
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"balance": balance,
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	var balance any = "Unlimited"
	if !user.IsAdmin() {
		b, err := h.ledger.Balance(ctx, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to read balance.")
			return
		}
		balance = b
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"token_balance": balance,
	})
}

func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	entries, err := h.ledger.RecentActivity(ctx, user.ID, activityLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to read activity.")
		return
	}

	activity := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		activity = append(activity, map[string]any{
			"time":        e.CreatedAt,
			"action":      e.Action,
			"tokens_used": e.TokensUsed,
		})
	}

	writeJSON(w, http.StatusOK, activity)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "Current and new passwords are required.")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusForbidden, "wrong_password", "The current password you entered is incorrect.")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to change password.")
		return
	}
	h.invalidateUser(r, user.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully.",
	})
}

type changeUsernameRequest struct {
	Password    string `json:"password"`
	NewUsername string `json:"new_username"`
}

func (h *Handler) HandleChangeUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized.")
		return
	}

	var req changeUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body.")
		return
	}
	if req.Password == "" || req.NewUsername == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "Password and new username are required.")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusForbidden, "wrong_password", "The password you entered is incorrect.")
		return
	}

	if err := h.users.UpdateUsername(ctx, user.ID, req.NewUsername); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username_exists", "That username is already taken.")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to change username.")
		return
	}
	h.invalidateUser(r, user.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Username changed successfully.",
	})
}

func (h *Handler) invalidateUser(r *http.Request, userID string) {
	if h.cache != nil {
		auth.InvalidateUser(r.Context(), h.cache, userID)
	}
}
