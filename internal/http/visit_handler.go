package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
	"github.com/example/visitor-kiosk/internal/persistence"
)

type visitService interface {
	CheckIn(ctx context.Context, input application.CheckInInput) (application.Confirmation, error)
	LateCheckIn(ctx context.Context, input application.LateCheckInInput) (application.Confirmation, error)
	CheckOut(ctx context.Context, query string) (application.Confirmation, error)
	ActiveVisitors() []persistence.CacheRecord
}

type VisitHandler struct {
	service   visitService
	responder responder
	logger    *slog.Logger
}

func NewVisitHandler(service visitService, logger *slog.Logger) *VisitHandler {
	base := defaultLogger(logger)
	return &VisitHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *VisitHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "VisitHandler", operation, attrs...)
}

func (h *VisitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckIn", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CheckIn")

	confirmation, err := h.service.CheckIn(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "check-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("visitor_id", confirmation.VisitorID, "notification", string(confirmation.Notification)).InfoContext(r.Context(), "visitor checked in")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, confirmationResponse{Confirmation: toConfirmationDTO(confirmation)})
}

func (h *VisitHandler) LateCheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req lateCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "LateCheckIn", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode late check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "LateCheckIn")

	confirmation, err := h.service.LateCheckIn(r.Context(), application.LateCheckInInput{
		FullName: strings.TrimSpace(req.FullName),
		Reason:   strings.TrimSpace(req.ReasonForLate),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "late check-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("record_id", confirmation.VisitorID).InfoContext(r.Context(), "late arrival recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, confirmationResponse{Confirmation: toConfirmationDTO(confirmation)})
}

func (h *VisitHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckOut", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode checkout request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CheckOut")

	confirmation, err := h.service.CheckOut(r.Context(), strings.TrimSpace(req.Query))
	if err != nil {
		logger.ErrorContext(r.Context(), "checkout failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("visitor_id", confirmation.VisitorID).InfoContext(r.Context(), "visitor checked out")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, confirmationResponse{Confirmation: toConfirmationDTO(confirmation)})
}

func (h *VisitHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ListActive")
	visitors := h.service.ActiveVisitors()

	logger.With("result_count", len(visitors)).InfoContext(r.Context(), "active visitors listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listActiveResponse{Visitors: toVisitorDTOs(visitors)})
}

type checkInRequest struct {
	FullName       string `json:"full_name"`
	ReasonForVisit string `json:"reason_for_visit"`
	OtherReason    string `json:"other_reason"`
	PersonToMeet   string `json:"person_to_meet"`
	PhoneNumber    string `json:"phone_number"`
	Photo          string `json:"photo"`
}

func (r checkInRequest) toInput() application.CheckInInput {
	return application.CheckInInput{
		FullName:     strings.TrimSpace(r.FullName),
		Reason:       application.ReasonForVisit(strings.TrimSpace(r.ReasonForVisit)),
		OtherReason:  strings.TrimSpace(r.OtherReason),
		PersonToMeet: strings.TrimSpace(r.PersonToMeet),
		PhoneNumber:  strings.TrimSpace(r.PhoneNumber),
		Photo:        r.Photo,
	}
}

type lateCheckInRequest struct {
	FullName      string `json:"full_name"`
	ReasonForLate string `json:"reason_for_late"`
}

type checkOutRequest struct {
	Query string `json:"query"`
}

type confirmationResponse struct {
	Confirmation confirmationDTO `json:"confirmation"`
}

type confirmationDTO struct {
	Kind         string  `json:"kind"`
	VisitorID    string  `json:"visitor_id"`
	FullName     string  `json:"full_name"`
	CheckedInAt  string  `json:"checked_in_at"`
	CheckedOutAt *string `json:"checked_out_at,omitempty"`
	Notification string  `json:"notification,omitempty"`
}

func toConfirmationDTO(c application.Confirmation) confirmationDTO {
	dto := confirmationDTO{
		Kind:         string(c.Kind),
		VisitorID:    c.VisitorID,
		FullName:     c.FullName,
		CheckedInAt:  c.CheckedInAt.UTC().Format(time.RFC3339),
		Notification: string(c.Notification),
	}
	if c.CheckedOutAt != nil {
		out := c.CheckedOutAt.UTC().Format(time.RFC3339)
		dto.CheckedOutAt = &out
	}
	return dto
}

type listActiveResponse struct {
	Visitors []activeVisitorDTO `json:"visitors"`
}

type activeVisitorDTO struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	PersonToMeet string `json:"person_to_meet,omitempty"`
	CheckedInAt  string `json:"checked_in_at"`
}

func toVisitorDTOs(records []persistence.CacheRecord) []activeVisitorDTO {
	if len(records) == 0 {
		return nil
	}
	out := make([]activeVisitorDTO, 0, len(records))
	for _, record := range records {
		out = append(out, activeVisitorDTO{
			ID:           record.ID,
			FullName:     record.FullName,
			PersonToMeet: record.PersonToMeet,
			CheckedInAt:  record.CheckedInAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
