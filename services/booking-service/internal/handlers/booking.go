package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type BookingHandler struct {
	catalog  availability.Catalog
	recorder *booking.Recorder
	repo     *storage.BookingRepository
	logger   *slog.Logger
	metrics  *metrics.BookingMetrics
	loc      *time.Location
	now      func() time.Time
}

func NewBookingHandler(catalog availability.Catalog, recorder *booking.Recorder, repo *storage.BookingRepository, logger *slog.Logger, m *metrics.BookingMetrics, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{
		catalog:  catalog,
		recorder: recorder,
		repo:     repo,
		logger:   logger,
		metrics:  m,
		loc:      loc,
		now:      time.Now,
	}
}

// Register mounts the booking routes on mux.
func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/slots", h.AvailableSlots)
	mux.HandleFunc("/api/v1/public/slots/booked", h.BookedSlots)
	mux.HandleFunc("/api/v1/public/dates", h.AvailableDates)
	mux.HandleFunc("/api/v1/public/calendar", h.Calendar)
	mux.HandleFunc("/api/v1/public/services", h.Services)
	mux.HandleFunc("/api/v1/public/book", h.Create)
	mux.HandleFunc("/api/v1/bookings", h.List)
}

type slotItem struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Price     int    `json:"price"`
}

type slotsResponse struct {
	Date   string     `json:"date"`
	Period string     `json:"period,omitempty"`
	Slots  []slotItem `json:"slots"`
}

type createBookingRequest struct {
	SlotID string `json:"slot_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Notes  string `json:"notes"`
}

type createBookingResponse struct {
	BookingID  string `json:"booking_id"`
	TimeSlotID string `json:"time_slot_id"`
	CreatedAt  string `json:"created_at"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

type bookingItem struct {
	BookingID     string `json:"booking_id"`
	TimeSlotID    string `json:"time_slot_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type dayItem struct {
	Date        string `json:"date"`
	InMonth     bool   `json:"in_month"`
	Selected    bool   `json:"selected"`
	Today       bool   `json:"today"`
	Highlighted bool   `json:"highlighted"`
	Disabled    bool   `json:"disabled"`
}

type serviceItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Duration    int    `json:"duration_minutes"`
	Price       int    `json:"price"`
	Description string `json:"description"`
}

func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	h.listSlots(w, r, true)
}

func (h *BookingHandler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	h.listSlots(w, r, false)
}

func (h *BookingHandler) listSlots(w http.ResponseWriter, r *http.Request, available bool) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	date, ok := h.parseDateParam(w, r, "date")
	if !ok {
		return
	}

	var slots []model.TimeSlot
	kind := "available"
	if available {
		slots = h.catalog.AvailableSlots(date)
	} else {
		kind = "booked"
		slots = h.catalog.BookedSlots(date)
	}

	resp := slotsResponse{Date: availability.DateKey(date)}
	if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
		period, err := availability.ParsePeriod(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "period must be morning or afternoon")
			return
		}
		slots = availability.InPeriod(slots, period)
		resp.Period = string(period)
	}
	resp.Slots = toSlotItems(slots)
	h.metrics.ObserveSlotQuery(kind, "http", len(slots))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	dates := h.catalog.AvailableDates()
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, availability.DateKey(d))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"dates": out})
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	today := h.now().In(h.loc)
	month := today
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		m, err := time.ParseInLocation("2006-01", raw, h.loc)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "month must be yyyy-MM")
			return
		}
		month = m
	}
	var selected time.Time
	if r.URL.Query().Has("selected") {
		d, ok := h.parseDateParam(w, r, "selected")
		if !ok {
			return
		}
		selected = d
	}

	grid := calendar.Month(month, selected, today, h.catalog.AvailableDates())
	weeks := make([][]dayItem, 0, len(grid.Weeks))
	for _, wk := range grid.Weeks {
		days := make([]dayItem, 0, len(wk))
		for _, d := range wk {
			days = append(days, dayItem{
				Date:        availability.DateKey(d.Date),
				InMonth:     d.InMonth,
				Selected:    d.Selected,
				Today:       d.Today,
				Highlighted: d.Highlighted,
				Disabled:    d.Disabled,
			})
		}
		weeks = append(weeks, days)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"year":  grid.Year,
		"month": int(grid.Month),
		"prev":  calendar.Prev(month).Format("2006-01"),
		"next":  calendar.Next(month).Format("2006-01"),
		"weeks": weeks,
	})
}

func (h *BookingHandler) Services(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	services := model.Services()
	out := make([]serviceItem, 0, len(services))
	for _, s := range services {
		out = append(out, serviceItem(s))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": out})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx := r.Context()
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(idempotencyKey)
		if errors.Is(err, storage.ErrInFlight) {
			httpx.WriteError(w, r, http.StatusConflict, "request with this idempotency key is in progress")
			return
		}
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "failed to lock idempotency key")
			return
		}
		if exists {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
		// Released unless a response gets finalized below.
		defer h.repo.ReleaseIdempotencyKey(idempotencyKey)
	}

	b, err := h.recorder.Record(ctx, req.SlotID, model.Contact{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		if verr, ok := validation.AsErrors(err); ok {
			body := httpx.ErrorBody{
				Error:     "validation failed",
				Fields:    verr.Fields,
				RequestID: httpx.RequestIDFromContext(ctx),
			}
			h.respond(w, r, idempotencyKey, "", http.StatusUnprocessableEntity, body)
			return
		}
		h.logger.Error("record booking failed", "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "failed to record booking")
		return
	}

	message := ""
	if start, err := availability.ParseSlotID(b.TimeSlotID, h.loc); err == nil {
		message = model.ConfirmationMessage(start)
	}
	h.respond(w, r, idempotencyKey, b.ID, http.StatusCreated, createBookingResponse{
		BookingID:  b.ID,
		TimeSlotID: b.TimeSlotID,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339Nano),
		Title:      model.ConfirmationTitle,
		Message:    message,
	})
}

// respond writes v and, when a key is given, stores it for replay.
func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request, idempotencyKey, bookingID string, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "failed to build response")
		return
	}
	if idempotencyKey != "" {
		h.repo.FinalizeIdempotency(idempotencyKey, bookingID, status, body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	bookings, err := h.repo.List(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, bookingItem{
			BookingID:     b.ID,
			TimeSlotID:    b.TimeSlotID,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			CustomerPhone: b.CustomerPhone,
			Notes:         b.Notes,
			CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": items, "total": h.repo.Count()})
}

func (h *BookingHandler) parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, name+" required (yyyy-MM-dd)")
		return time.Time{}, false
	}
	d, err := availability.ParseDate(raw, h.loc)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid "+name+" (yyyy-MM-dd)")
		return time.Time{}, false
	}
	return d, true
}

func toSlotItems(slots []model.TimeSlot) []slotItem {
	out := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotItem{
			ID:        s.ID,
			Date:      availability.DateKey(s.Date),
			StartTime: s.StartClock(),
			EndTime:   s.EndClock(),
			Start:     s.Start.Format(time.RFC3339),
			End:       s.End.Format(time.RFC3339),
			Available: s.Available,
			Price:     s.Price,
		})
	}
	return out
}
