package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"crm-service/internal/counselor"
	"crm-service/internal/httputil"
	"crm-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewHandler(service *Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
		metrics:   m,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/employees/register", h.Register)
	router.Post("/employees/login", h.Login)
}

// Register creates a new counselor account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide name, email, and password")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.WarnContext(r.Context(), "registration validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide name, email, and password")
		return
	}

	created, token, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, counselor.ErrEmailExists) {
			httputil.RespondWithError(w, http.StatusConflict, "Email address already registered")
			return
		}
		h.logger.ErrorContext(r.Context(), "registration failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	h.logger.InfoContext(r.Context(), "counselor registered", "email", created.Email)
	h.metrics.RecordCounselorRegistered(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, AuthResponse{
		Message:  "Employee registered successfully",
		Employee: created,
		Token:    token,
	})
}

// Login authenticates a counselor
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.WarnContext(r.Context(), "login validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	c, token, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	h.logger.InfoContext(r.Context(), "counselor logged in", "email", c.Email)
	h.metrics.RecordCounselorLogin(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, AuthResponse{
		Message:  "Login successful",
		Employee: c,
		Token:    token,
	})
}
