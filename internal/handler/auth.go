package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jdelorme/fieldsync/internal/auth"
	"github.com/jdelorme/fieldsync/internal/email"
	"github.com/jdelorme/fieldsync/internal/store"
)

type AuthHandler struct {
	accounts    *store.AccountStore
	emailClient *email.Client
	logger      *slog.Logger
}

func NewAuthHandler(as *store.AccountStore, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: as, emailClient: ec, logger: logger}
}

// Login authenticates email/password and issues a fresh access token,
// replacing any previously issued one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.Email == "" || req.Password == "" {
		RespondError(w, http.StatusBadRequest, "Credentials required")
		return
	}

	account, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if account == nil {
		RespondError(w, http.StatusUnauthorized, "Incorrect credentials")
		return
	}

	token, err := h.accounts.IssueToken(account.ID)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	Respond(w, http.StatusOK, "Login successfully", map[string]any{
		"userId": account.ID,
		"email":  account.Email,
		"name":   account.Name,
		"token":  token,
	})
}

// Verify confirms the bearer token; the token guard has already resolved
// the account by the time this runs.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	Respond(w, http.StatusOK, "Token verified successfully", map[string]any{
		"valid":   true,
		"user_id": ac.AccountID,
		"email":   ac.Email,
	})
}

// Logout clears the access token and its expiry, invalidating the session
// immediately.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err := h.accounts.ClearToken(ac.AccountID); err != nil {
		h.logger.Error("clear token", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	Respond(w, http.StatusOK, "Log out successfully", map[string]any{})
}

// ResetPassword mails a reset link to a known account. The mail carries a
// freshly issued token, which also invalidates any active session (single
// active token per account).
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.Email == "" {
		RespondError(w, http.StatusBadRequest, "Email required")
		return
	}

	account, err := h.accounts.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("get account", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if account == nil {
		RespondError(w, http.StatusNotFound, "User not found")
		return
	}

	token, err := h.accounts.IssueToken(account.ID)
	if err != nil {
		h.logger.Error("issue reset token", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if h.emailClient != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendPasswordReset(account.Email, token); err != nil {
			h.logger.Error("send reset email", "error", err)
			RespondError(w, http.StatusInternalServerError, "Failed to send reset password email")
			return
		}
	} else {
		h.logger.Info("password reset token generated", "email", account.Email, "token", token)
	}

	Respond(w, http.StatusOK, "Password reset link sent successfully", map[string]any{})
}
