package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alemendez13/sistema-ATU-sub000/internal/booking"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/lockout"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

type bookingService interface {
	CreateBooking(ctx context.Context, req booking.CreateRequest) (*booking.Booking, error)
	RescheduleBooking(ctx context.Context, req booking.RescheduleRequest) (*booking.Booking, error)
	CancelBooking(ctx context.Context, req booking.CancelRequest) error
}

type admissionChecker interface {
	Allow(ctx context.Context, requester string) (*lockout.Result, error)
	Reset(ctx context.Context, requester string) error
}

// BookingHandler serves create, reschedule and cancel.
type BookingHandler struct {
	service   bookingService
	admission admissionChecker
	logger    *logging.Logger
}

func NewBookingHandler(service bookingService, admission admissionChecker, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{service: service, admission: admission, logger: logger}
}

// createBookingRequest is the wire form of a booking request.
type createBookingRequest struct {
	ProviderID      string `json:"provider_id"`
	Date            string `json:"date"`
	Time            string `json:"time,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	ServiceCode     string `json:"service_code"`

	PatientName  string `json:"patient_name"`
	PatientID    string `json:"patient_id,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`

	OriginalPriceCents int64  `json:"original_price_cents"`
	DiscountLabel      string `json:"discount_label,omitempty"`
	FinalPriceCents    int64  `json:"final_price_cents"`

	CreatedBy string `json:"created_by,omitempty"`
}

func (r createBookingRequest) toDomain() (booking.CreateRequest, error) {
	if r.ProviderID == "" || r.ServiceCode == "" || r.PatientName == "" {
		return booking.CreateRequest{}, errors.New("provider_id, service_code and patient_name required")
	}
	day, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return booking.CreateRequest{}, errors.New("date must be YYYY-MM-DD")
	}
	return booking.CreateRequest{
		ProviderID:      r.ProviderID,
		Day:             day,
		Time:            r.Time,
		DurationMinutes: r.DurationMinutes,
		Patient: booking.Patient{
			Name:  r.PatientName,
			ID:    r.PatientID,
			Phone: r.PatientPhone,
		},
		ServiceCode:        r.ServiceCode,
		OriginalPriceCents: r.OriginalPriceCents,
		DiscountLabel:      r.DiscountLabel,
		FinalPriceCents:    r.FinalPriceCents,
		CreatedBy:          r.CreatedBy,
	}, nil
}

type bookingResponse struct {
	CorrelationID string   `json:"correlation_id"`
	Folio         string   `json:"folio,omitempty"`
	ProviderID    string   `json:"provider_id"`
	Date          string   `json:"date"`
	SlotTimes     []string `json:"slot_times"`
	Warnings      []string `json:"warnings,omitempty"`
}

func toResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		CorrelationID: b.CorrelationID,
		Folio:         b.Folio,
		ProviderID:    b.ProviderID,
		Date:          b.Day.Format("2006-01-02"),
		SlotTimes:     b.SlotTimes,
		Warnings:      b.Warnings,
	}
}

// Create books an appointment.
// POST /bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var wire createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	req, err := wire.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.admit(w, r, req.Patient.Phone) {
		return
	}

	result, err := h.service.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeBookingError(w, result, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toResponse(result)); err != nil {
		h.logger.Error("failed to encode booking response", "error", err)
	}
}

type rescheduleBookingRequest struct {
	OldProviderID  string               `json:"old_provider_id"`
	OldServiceDate string               `json:"old_service_date"`
	New            createBookingRequest `json:"new"`
}

// Reschedule moves an existing booking.
// POST /bookings/{correlationID}/reschedule
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	if correlationID == "" {
		writeError(w, http.StatusBadRequest, "correlation_id required")
		return
	}
	var wire rescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	oldDate, err := time.Parse("2006-01-02", wire.OldServiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "old_service_date must be YYYY-MM-DD")
		return
	}
	newReq, err := wire.New.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.admit(w, r, newReq.Patient.Phone) {
		return
	}

	result, err := h.service.RescheduleBooking(r.Context(), booking.RescheduleRequest{
		CorrelationID:  correlationID,
		OldProviderID:  wire.OldProviderID,
		OldServiceDate: oldDate,
		New:            newReq,
	})
	if err != nil {
		h.writeBookingError(w, result, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toResponse(result)); err != nil {
		h.logger.Error("failed to encode booking response", "error", err)
	}
}

type cancelBookingRequest struct {
	ProviderID  string `json:"provider_id"`
	PatientID   string `json:"patient_id,omitempty"`
	ServiceDate string `json:"service_date"`
}

// Cancel removes a booking.
// POST /bookings/{correlationID}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	if correlationID == "" {
		writeError(w, http.StatusBadRequest, "correlation_id required")
		return
	}
	var wire cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", wire.ServiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "service_date must be YYYY-MM-DD")
		return
	}

	if err := h.service.CancelBooking(r.Context(), booking.CancelRequest{
		CorrelationID: correlationID,
		ProviderID:    wire.ProviderID,
		PatientID:     wire.PatientID,
		ServiceDate:   date,
	}); err != nil {
		h.logger.Error("cancel failed", "correlation_id", correlationID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetLockout lifts the admission lockout for a requester.
// POST /admin/lockout/{requester}/reset
func (h *BookingHandler) ResetLockout(w http.ResponseWriter, r *http.Request) {
	requester := chi.URLParam(r, "requester")
	if requester == "" {
		writeError(w, http.StatusBadRequest, "requester required")
		return
	}
	if h.admission == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.admission.Reset(r.Context(), requester); err != nil {
		h.logger.Error("lockout reset failed", "requester", requester, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) admit(w http.ResponseWriter, r *http.Request, requester string) bool {
	if h.admission == nil || requester == "" {
		return true
	}
	result, err := h.admission.Allow(r.Context(), requester)
	if err != nil {
		h.logger.Error("admission check failed, allowing", "error", err)
		return true
	}
	if !result.Allowed {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("booking attempts exceeded (%d of %d)", result.CurrentCount, result.MaxAllowed))
		return false
	}
	return true
}

// writeBookingError maps saga failures onto HTTP statuses. Partial failures
// still carry the booking body so the caller keeps the correlation id for
// follow-up.
func (h *BookingHandler) writeBookingError(w http.ResponseWriter, result *booking.Booking, err error) {
	var partial *booking.PartialFailureError
	switch {
	case errors.As(err, &partial):
		h.logger.Error("booking partially failed", "event_id", partial.EventID, "step", partial.Step, "error", err)
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusBadGateway
		if errors.Is(err, booking.ErrSlotUnavailable) {
			status = http.StatusConflict
		}
		w.WriteHeader(status)
		body := map[string]any{
			"error":   "booking partially failed, calendar event kept",
			"step":    partial.Step,
			"details": partial.Err.Error(),
		}
		if result != nil {
			body["booking"] = toResponse(result)
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.Error("failed to encode partial failure", "error", err)
		}
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot no longer available")
	case errors.Is(err, booking.ErrPartialPaymentConflict):
		writeError(w, http.StatusConflict, "booking has partial payments recorded, resolve at front desk")
	case errors.Is(err, booking.ErrExternalService):
		writeError(w, http.StatusBadGateway, "calendar unavailable, nothing was booked")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown provider or service")
	default:
		h.logger.Error("booking failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
