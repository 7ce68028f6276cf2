/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types embed the
  factory JSON schema types so the HTTP API and the CLI parse inputs the same
  way; response types decouple the engine's Value from the wire format.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculations:
    DifferenceRequest/Response, TruncateRequest/Response,
    SameRequest/Response, UnitsResponse, ValueDTO

  Profiles:
    ProfileDTO

  History:
    RecordDTO

VALIDATION:
  Validation is done in handlers and the factory, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: JSON schema types
*/
package api

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
	"github.com/warp/calendar-engine/history"
)

// =============================================================================
// CALCULATION TYPES
// =============================================================================

// ValueDTO is a calendar value in API responses.
type ValueDTO struct {
	Value  string `json:"value"` // ISO 8601 with offset, millisecond precision
	Millis int64  `json:"millis"`
	Zone   string `json:"zone"`
}

func toValueDTO(v calendar.Value) ValueDTO {
	return ValueDTO{Value: v.String(), Millis: v.Millis(), Zone: v.Location().String()}
}

// DifferenceRequest is the body of POST /api/difference.
type DifferenceRequest struct {
	factory.DifferenceJSON
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// DifferenceResponse carries the rounded count and the exact quotient.
type DifferenceResponse struct {
	Difference int64             `json:"difference"`
	Fraction   decimal.Decimal   `json:"fraction"`
	Field      calendar.Field    `json:"field"`
	Rounding   calendar.Rounding `json:"rounding"`
	From       ValueDTO          `json:"from"`
	To         ValueDTO          `json:"to"`
}

// TruncateRequest is the body of POST /api/truncate.
type TruncateRequest struct {
	factory.TruncateJSON
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type TruncateResponse struct {
	ValueDTO
	Field     calendar.Field `json:"field"`
	Direction string         `json:"direction"`
}

// SameRequest is the body of POST /api/same.
type SameRequest struct {
	factory.SameJSON
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type SameResponse struct {
	Same  bool           `json:"same"`
	Field calendar.Field `json:"field"`
}

type UnitsResponse struct {
	Field        calendar.Field `json:"field"`
	Milliseconds int64          `json:"milliseconds"`
}

// =============================================================================
// PROFILE TYPES
// =============================================================================

// ProfileDTO is a named calendar profile, used for both requests and responses.
type ProfileDTO struct {
	Name      string     `json:"name"`
	Zone      string     `json:"zone"`
	FirstDay  string     `json:"first_day"`
	Lenient   bool       `json:"lenient"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toProfileDTO(p history.Profile) ProfileDTO {
	dto := ProfileDTO{
		Name:     p.Name,
		Zone:     p.Zone,
		FirstDay: p.FirstDay.String(),
		Lenient:  p.Lenient,
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

// =============================================================================
// HISTORY TYPES
// =============================================================================

// RecordDTO is a calculation record in API responses.
type RecordDTO struct {
	ID             string    `json:"id"`
	Operation      string    `json:"operation"`
	Field          string    `json:"field"`
	Rounding       string    `json:"rounding,omitempty"`
	Zone           string    `json:"zone"`
	Operands       []int64   `json:"operands"`
	Result         string    `json:"result"`
	Fraction       *string   `json:"fraction,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toRecordDTOs(records []history.Record) []RecordDTO {
	dtos := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		dto := RecordDTO{
			ID:             r.ID,
			Operation:      string(r.Operation),
			Field:          r.Field.String(),
			Rounding:       r.Rounding,
			Zone:           r.Zone,
			Operands:       r.Operands,
			Result:         r.Result,
			IdempotencyKey: r.IdempotencyKey,
			CreatedAt:      r.CreatedAt,
		}
		if r.Fraction.Valid {
			dto.Fraction = strPtr(r.Fraction.Decimal.String())
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func formatBool(b bool) string { return strconv.FormatBool(b) }

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// InexactDetails explains a rejected Unnecessary rounding.
type InexactDetails struct {
	Message string `json:"message"`
	Integer int64  `json:"integer"`
	Inner   int64  `json:"inner"`
	Outer   int64  `json:"outer"`
}
