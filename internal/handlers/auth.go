package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/auth"
	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/middleware"
	"github.com/ukydev/vehicle-maintenance/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	logger         logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		logger:         logger,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if loginReq.Username == "" || loginReq.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// Find user by username
	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeErrorMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	// Check if user is active
	if !user.IsActive {
		writeErrorMessage(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	// Verify password
	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		writeErrorMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)

	// A failed last-login update does not fail the login.
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.logger.WithError(err).WithField("username", user.Username).Warn("failed to update last login")
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(r, &registerReq); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check if username already exists
	if _, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username); err == nil {
		writeErrorMessage(w, http.StatusConflict, "Username already exists")
		return
	} else if !errors.Is(err, errs.ErrNotFound) {
		writeError(w, h.logger, err)
		return
	}

	// Check if email already exists
	if _, err := h.userCollection.FindUserByEmail(r.Context(), registerReq.Email); err == nil {
		writeErrorMessage(w, http.StatusConflict, "Email already exists")
		return
	} else if !errors.Is(err, errs.ErrNotFound) {
		writeError(w, h.logger, err)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user := models.User{
		Username:     registerReq.Username,
		Email:        registerReq.Email,
		PasswordHash: passwordHash,
	}
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Reload to pick up the generated id and normalized fields.
	created, err := h.userCollection.FindUserByUsername(r.Context(), user.Username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.WithField("username", created.Username).Info("user registered")
	h.respondWithTokens(w, http.StatusCreated, created)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, status, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Logout acknowledges a logout. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &passwordReq); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Current password and new password are required")
		return
	}

	// Validate new password
	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Verify current password
	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		writeErrorMessage(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}
