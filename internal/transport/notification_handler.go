package transport

import (
	"errors"
	"net/http"
	"strconv"

	"salepoint/internal/middleware"
	"salepoint/internal/notify"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DispatchRequest sends a message over one channel, or every channel
// when Channel is "all"
type DispatchRequest struct {
	Channel string `json:"channel" validate:"required,oneof=sms email all"`
	Target  string `json:"target"`
	Message string `json:"message" validate:"required"`
}

// NotificationHandler serves the alert log and manual dispatches
type NotificationHandler struct {
	hub    *notify.Hub
	logger *zap.Logger
}

// NewNotificationHandler creates a NotificationHandler
func NewNotificationHandler(hub *notify.Hub, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{hub: hub, logger: logger}
}

// RegisterRoutes registers the notification routes. Clearing the log and
// manual dispatch are manager and admin operations.
func (h *NotificationHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/unread", h.UnreadCount)
		r.Post("/{id}/read", h.MarkRead)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole([]string{middleware.RoleAdmin, middleware.RoleManager}, h.logger))
			r.Delete("/", h.ClearAll)
			r.Post("/dispatch", h.Dispatch)
		})
	})
}

// List returns notifications newest first, optionally limited
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.hub.List(limit))
}

// UnreadCount returns the badge count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, map[string]int{"unread": h.hub.Unread()})
}

// MarkRead flips one notification to read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	h.hub.MarkRead(id)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]int{"unread": h.hub.Unread()})
}

// ClearAll empties the notification log
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.hub.ClearAll()
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Dispatch sends a message over the requested channel(s). Per-channel
// outcomes are reported individually.
func (h *NotificationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Channel == "all" {
		results := h.hub.DispatchAll(r.Context(), req.Target, req.Message)
		payload := make(map[string]string, len(results))
		for channel, err := range results {
			if err != nil {
				payload[channel] = err.Error()
			} else {
				payload[channel] = "sent"
			}
		}
		middleware.RespondWithJSON(w, http.StatusOK, payload)
		return
	}

	if err := h.hub.Dispatch(r.Context(), req.Channel, req.Target, req.Message); err != nil {
		switch {
		case errors.Is(err, notify.ErrChannelDisabled), errors.Is(err, notify.ErrChannelNotConfigured):
			middleware.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, notify.ErrUnknownChannel):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Dispatch failed", zap.String("channel", req.Channel), zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadGateway, "failed to dispatch notification")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{req.Channel: "sent"})
}
