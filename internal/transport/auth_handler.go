package transport

import (
	"errors"
	"net/http"

	"salepoint/internal/auth"
	"salepoint/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles operator sign-in and sign-out
type AuthHandler struct {
	authService auth.Service
	sessions    *SessionStore
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(authService auth.Service, sessions *SessionStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
		})
	})
}

// Login authenticates an operator and issues an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Logout records the sign-out and discards the operator's open cart
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	h.authService.Logout(username)
	h.sessions.Drop(username)

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
