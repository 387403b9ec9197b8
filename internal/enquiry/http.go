package enquiry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"crm-service/internal/auth"
	"crm-service/internal/httputil"
	"crm-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// RegisterPublicRoutes mounts the unauthenticated enquiry routes.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/enquiries/public", h.Submit)
}

// RegisterProtectedRoutes mounts the routes that require a bearer token. The
// caller applies the auth middleware to the group.
func (h *Handler) RegisterProtectedRoutes(router chi.Router) {
	router.Get("/enquiries/public", h.ListUnclaimed)
	router.Get("/enquiries/private", h.ListMine)
	router.Patch("/enquiries/{id}/claim", h.Claim)
}

// Submit accepts a public enquiry from a prospective client
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide name, email, and courseInterest")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.logger.WarnContext(r.Context(), "enquiry validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Please provide name, email, and courseInterest")
		return
	}

	created, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "enquiry submission failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Server error while submitting enquiry")
		return
	}

	h.logger.InfoContext(r.Context(), "enquiry submitted", "enquiry_id", created.ID)
	h.metrics.RecordEnquirySubmitted(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, EnquiryResponse{
		Message: "Enquiry submitted successfully",
		Enquiry: created,
	})
}

// ListUnclaimed returns the shared pool of unclaimed leads
func (h *Handler) ListUnclaimed(w http.ResponseWriter, r *http.Request) {
	enquiries, err := h.service.ListUnclaimed(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list unclaimed enquiries", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Server error while fetching public enquiries")
		return
	}

	h.metrics.RecordLeadListViewed(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, ListResponse{
		Message:   "Public enquiries retrieved successfully",
		Count:     len(enquiries),
		Enquiries: enquiries,
	})
}

// ListMine returns the leads claimed by the authenticated counselor
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	counselorID, ok := auth.CounselorID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	enquiries, err := h.service.ListMine(r.Context(), counselorID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list claimed enquiries", "error", err, "counselor_id", counselorID)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Server error while fetching private enquiries")
		return
	}

	h.metrics.RecordLeadListViewed(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, ListResponse{
		Message:   "Private enquiries retrieved successfully",
		Count:     len(enquiries),
		Enquiries: enquiries,
	})
}

// Claim assigns an unclaimed lead to the authenticated counselor. First
// claimer wins; everyone else gets a 409 naming the winner.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	counselorID, ok := auth.CounselorID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	enquiryID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid enquiry ID")
		return
	}

	claimed, err := h.service.Claim(r.Context(), enquiryID, counselorID)
	if err != nil {
		h.handleClaimError(w, r, claimed, err)
		return
	}

	h.logger.InfoContext(r.Context(), "lead claimed", "enquiry_id", enquiryID, "counselor_id", counselorID)
	h.metrics.RecordLeadClaimed(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, EnquiryResponse{
		Message: "Lead claimed successfully",
		Enquiry: claimed,
	})
}

func (h *Handler) handleClaimError(w http.ResponseWriter, r *http.Request, current *Enquiry, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.RespondWithError(w, http.StatusNotFound, "Enquiry not found")
		return
	}
	if errors.Is(err, ErrAlreadyClaimed) && current != nil {
		h.metrics.RecordClaimConflict(r.Context())
		httputil.RespondWithJSON(w, http.StatusConflict, ConflictResponse{
			Message: "This lead has already been claimed by another counselor",
			Enquiry: ClaimedBySummary{
				ID:        current.ID,
				Name:      current.Name,
				Email:     current.Email,
				Claimed:   current.Claimed,
				ClaimedBy: current.CounselorID,
			},
		})
		return
	}
	h.logger.ErrorContext(r.Context(), "claim failed", "error", err)
	httputil.RespondWithError(w, http.StatusInternalServerError, "Server error while claiming lead")
}
