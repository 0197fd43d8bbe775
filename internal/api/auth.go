package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"sklad/internal/auth"
	"sklad/internal/model"
	"sklad/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type loginResponse struct {
	Access   string          `json:"access"`
	Refresh  string          `json:"refresh"`
	User     model.User      `json:"user"`
	Workshop *model.Workshop `json:"workshop,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issueTokens(w, r, user)
	slog.Info("user logged in", "user", user.Username, "role", user.Role)
}

// Refresh handles POST /api/auth/refresh. A refresh token is redeemed
// exactly once; redeeming it again fails.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := auth.ValidateToken(h.JWTSecret, req.Refresh, auth.KindRefresh)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	ok, err := store.ConsumeRefreshToken(r.Context(), h.DB, claims.ID, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		jsonError(w, http.StatusUnauthorized, "refresh token already used")
		return
	}

	user, err := loadUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}

	h.issueTokens(w, r, user)
}

// issueTokens generates and persists a token pair and writes the login
// response, including the user's workshop when one is assigned.
func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, user *model.User) {
	pair, err := auth.GenerateTokenPair(h.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	if err := store.SaveRefreshToken(r.Context(), h.DB, pair.RefreshJTI, user.ID, pair.RefreshExp); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save refresh token")
		return
	}

	var workshop *model.Workshop
	if user.WorkshopID != nil {
		workshop, err = store.GetWorkshop(r.Context(), h.DB, *user.WorkshopID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	jsonResponse(w, http.StatusOK, loginResponse{
		Access:   pair.Access,
		Refresh:  pair.Refresh,
		User:     *user,
		Workshop: workshop,
	})
}

// Logout handles POST /api/auth/logout. It revokes all of the user's
// outstanding refresh tokens; the short-lived access token simply expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeUserTokens(r.Context(), h.DB, user.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to revoke tokens")
		return
	}

	slog.Info("user logged out", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, string(hash)); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("user changed own password", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
