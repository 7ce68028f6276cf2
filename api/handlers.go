/*
handlers.go - HTTP API handlers for the calendar engine

PURPOSE:
  Exposes calendar arithmetic via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the calendar package.

ENDPOINTS:
  Calculations:
    POST   /api/difference             Rounded field difference + exact fraction
    POST   /api/truncate               Begin or end of the enclosing period
    POST   /api/same                   Same bucket at a granularity
    GET    /api/units/{field}          Milliseconds per physical unit

  Profiles:
    GET    /api/profiles               List named profiles
    POST   /api/profiles               Create or replace a profile
    GET    /api/profiles/{name}        Get a profile
    DELETE /api/profiles/{name}        Delete a profile

  History:
    GET    /api/history                Recent calculations (?limit=&operation=&since=)

  Maintenance:
    POST   /api/reset                  Clear history, idempotency keys and profiles

  Health:
    GET    /health

ZONE RESOLUTION:
  A request's settings start from the server default (YAML config), are
  replaced by the named profile if "profile" is set, and then overridden
  field by field by "zone" and "first_day".

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unparseable input, unsupported field or unit, out-of-range field
  - 404: Unknown profile
  - 409: Idempotency key already used (checked before computing)
  - 422: Unnecessary rounding on an inexact difference
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
	"github.com/warp/calendar-engine/history"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   history.Repository
	Factory *factory.Factory
	Clock   calendar.Clock

	// HistoryLimit caps /api/history when the client sends no limit.
	HistoryLimit int
}

// NewHandler creates a new handler with the given store and request factory.
func NewHandler(store history.Repository, f *factory.Factory) *Handler {
	return &Handler{
		Store:        store,
		Factory:      f,
		Clock:        calendar.SystemClock{},
		HistoryLimit: 100,
	}
}

// baseConfig returns the settings a request starts from.
func (h *Handler) baseConfig(ctx context.Context, z factory.ZoneJSON) (calendar.Config, error) {
	if z.Profile == "" {
		return h.Factory.Default, nil
	}
	p, err := h.Store.GetProfile(ctx, z.Profile)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("profile %q: %w", z.Profile, err)
	}
	return p.Config()
}

// checkIdempotency rejects a reused key before anything is computed. Append
// still enforces uniqueness for requests racing on the same key.
func (h *Handler) checkIdempotency(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	used, err := h.Store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("key %q: %w", key, history.ErrDuplicateIdempotencyKey)
	}
	return nil
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

// Difference handles POST /api/difference.
func (h *Handler) Difference(w http.ResponseWriter, r *http.Request) {
	var req DifferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.checkIdempotency(r.Context(), req.IdempotencyKey); err != nil {
		writeDomainError(w, err)
		return
	}

	base, err := h.baseConfig(r.Context(), req.ZoneJSON)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in, err := h.Factory.Difference(req.DifferenceJSON, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid difference request", err)
		return
	}

	n, err := calendar.Difference(in.From, in.To, in.Field, in.Rounding)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	frac, err := calendar.Fraction(in.From, in.To, in.Field)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec := history.NewRecord(history.OpDifference, h.Clock)
	rec.Field = in.Field
	rec.Rounding = in.Rounding.String()
	rec.Zone = in.From.Location().String()
	rec.Operands = []int64{in.From.Millis(), in.To.Millis()}
	rec.Result = strconv.FormatInt(n, 10)
	rec.Fraction = decimal.NewNullDecimal(frac)
	rec.IdempotencyKey = req.IdempotencyKey
	if err := h.Store.Append(r.Context(), rec); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DifferenceResponse{
		Difference: n,
		Fraction:   frac,
		Field:      in.Field,
		Rounding:   in.Rounding,
		From:       toValueDTO(in.From),
		To:         toValueDTO(in.To),
	})
}

// Truncate handles POST /api/truncate.
func (h *Handler) Truncate(w http.ResponseWriter, r *http.Request) {
	var req TruncateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.checkIdempotency(r.Context(), req.IdempotencyKey); err != nil {
		writeDomainError(w, err)
		return
	}

	base, err := h.baseConfig(r.Context(), req.ZoneJSON)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in, err := h.Factory.Truncate(req.TruncateJSON, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid truncate request", err)
		return
	}

	v, err := calendar.Truncate(in.Value, in.Field, in.TowardStart)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	direction := "end"
	if in.TowardStart {
		direction = "begin"
	}

	rec := history.NewRecord(history.OpTruncate, h.Clock)
	rec.Field = in.Field
	rec.Zone = v.Location().String()
	rec.Operands = []int64{in.Value.Millis()}
	rec.Result = strconv.FormatInt(v.Millis(), 10)
	rec.IdempotencyKey = req.IdempotencyKey
	if err := h.Store.Append(r.Context(), rec); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TruncateResponse{
		ValueDTO:  toValueDTO(v),
		Field:     in.Field,
		Direction: direction,
	})
}

// Same handles POST /api/same.
func (h *Handler) Same(w http.ResponseWriter, r *http.Request) {
	var req SameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.checkIdempotency(r.Context(), req.IdempotencyKey); err != nil {
		writeDomainError(w, err)
		return
	}

	base, err := h.baseConfig(r.Context(), req.ZoneJSON)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in, err := h.Factory.Same(req.SameJSON, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid same request", err)
		return
	}

	same, err := calendar.SameBucket(in.A, in.B, in.Field, in.Config)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec := history.NewRecord(history.OpSame, h.Clock)
	rec.Field = in.Field
	rec.Zone = calendar.FromMillis(in.A, in.Config).Location().String()
	rec.Operands = []int64{in.A, in.B}
	rec.Result = formatBool(same)
	rec.IdempotencyKey = req.IdempotencyKey
	if err := h.Store.Append(r.Context(), rec); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SameResponse{Same: same, Field: in.Field})
}

// Units handles GET /api/units/{field}.
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	field, err := calendar.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ms, err := calendar.MillisecondsPerUnit(field)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnitsResponse{Field: field, Milliseconds: ms})
}

// =============================================================================
// PROFILE ENDPOINTS
// =============================================================================

// ListProfiles handles GET /api/profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles", err)
		return
	}

	dtos := make([]ProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		dtos = append(dtos, toProfileDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveProfile handles POST /api/profiles.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	firstDay := time.Monday
	if req.FirstDay != "" {
		wd, err := factory.ParseWeekday(req.FirstDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid first_day", err)
			return
		}
		firstDay = wd
	}

	p := history.Profile{
		Name:      req.Name,
		Zone:      req.Zone,
		FirstDay:  firstDay,
		Lenient:   req.Lenient,
		UpdatedAt: h.Clock.Now().UTC(),
	}
	if err := h.Store.SaveProfile(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}

	log.Printf("[API] Saved profile %s (%s, weeks start %s)", p.Name, p.Zone, p.FirstDay)
	writeJSON(w, http.StatusCreated, toProfileDTO(p))
}

// GetProfile handles GET /api/profiles/{name}.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProfile(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// DeleteProfile handles DELETE /api/profiles/{name}.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Store.DeleteProfile(r.Context(), name); err != nil {
		writeDomainError(w, err)
		return
	}
	log.Printf("[API] Deleted profile %s", name)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HISTORY ENDPOINTS
// =============================================================================

// ListHistory handles GET /api/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.Filter{Limit: h.HistoryLimit}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		filter.Limit = limit
	}
	switch op := history.Operation(q.Get("operation")); op {
	case "", history.OpDifference, history.OpTruncate, history.OpSame:
		filter.Operation = op
	default:
		writeError(w, http.StatusBadRequest, "Unknown operation", fmt.Errorf("operation %q", op))
		return
	}
	if s := q.Get("since"); s != "" {
		since, err := h.Factory.Value(s, h.Factory.Default)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since", err)
			return
		}
		filter.Since = since.Time()
	}

	records, err := h.Store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// ResetDatabase handles POST /api/reset and clears history and profiles.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	log.Printf("[API] Database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and store errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var inexact *calendar.InexactError
	switch {
	case errors.As(err, &inexact):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "Difference is not exact",
			Code:  "inexact_difference",
			Details: InexactDetails{
				Message: err.Error(),
				Integer: inexact.Integer,
				Inner:   inexact.Inner,
				Outer:   inexact.Outer,
			},
		})
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, history.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, "Idempotency key already used", err)
	case calendar.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Unsupported or out-of-range field", err)
	case errors.Is(err, history.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, "Invalid profile", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func strPtr(s string) *string {
	return &s
}
