/*
handlers_test.go - HTTP tests for the calendar API

Tests for:
- Calculation endpoints and their error statuses
- Idempotency keys (409 on reuse, before computing)
- Strict and lenient profiles
- Reset
- Profiles as request settings
- History listing and filters
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
	"github.com/warp/calendar-engine/store/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, factory.New(calendar.DefaultConfig()))
	h.Clock = calendar.FixedClock{T: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
	return NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDifference_MonthScenario(t *testing.T) {
	router := newTestRouter(t)

	// GIVEN: March 30 and January 31, 2024
	// WHEN: asking for whole months with half-up rounding
	rec := do(t, router, http.MethodPost, "/api/difference", map[string]any{
		"from": "2024-03-30", "to": "2024-01-31", "field": "month", "rounding": "half_up",
	})

	// THEN: 2 months, 1 + 30/31 exactly
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), resp["difference"])
	assert.Equal(t, "1.967741935", resp["fraction"])
	assert.Equal(t, "month", resp["field"])
	assert.Equal(t, "half_up", resp["rounding"])
}

func TestDifference_EpochMillisAndZone(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/difference", map[string]any{
		"from": 1704067200000 + 36*3600000, "to": 1704067200000, "field": "day", "rounding": "floor", "zone": "Asia/Seoul",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DifferenceResponse](t, rec)
	assert.Equal(t, int64(1), resp.Difference)
	assert.Equal(t, "Asia/Seoul", resp.From.Zone)
	assert.Equal(t, "2024-01-01T09:00:00.000+09:00", resp.To.Value)
}

func TestDifference_Errors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"inexact", map[string]any{"from": "2024-03-30", "to": "2024-01-31", "field": "month", "rounding": "unnecessary"}, http.StatusUnprocessableEntity},
		{"week field", map[string]any{"from": "2024-03-30", "to": "2024-01-31", "field": "day_of_week"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"from": "2024-03-30", "to": "2024-01-31", "field": "fortnight"}, http.StatusBadRequest},
		{"bad time", map[string]any{"from": "soon", "to": "2024-01-31", "field": "day"}, http.StatusBadRequest},
		{"bad zone", map[string]any{"from": "2024-03-30", "to": "2024-01-31", "field": "day", "zone": "Local"}, http.StatusBadRequest},
		{"unknown profile", map[string]any{"from": "2024-03-30", "to": "2024-01-31", "field": "day", "profile": "nope"}, http.StatusNotFound},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/difference", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}

	rec := do(t, router, http.MethodPost, "/api/difference", map[string]any{
		"from": "2024-03-30", "to": "2024-01-31", "field": "month", "rounding": "unnecessary",
	})
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "inexact_difference", resp["code"])
	details := resp["details"].(map[string]any)
	assert.Equal(t, float64(1), details["integer"])
	assert.Equal(t, float64(30*86400000), details["inner"])
}

func TestDifference_IdempotencyKey(t *testing.T) {
	router := newTestRouter(t)
	body := map[string]any{"from": "2024-01-02", "to": "2024-01-01", "field": "hour", "idempotency_key": "req-1"}

	rec := do(t, router, http.MethodPost, "/api/difference", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/difference", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIdempotencyKey_CheckedBeforeComputing(t *testing.T) {
	router := newTestRouter(t)

	// GIVEN: a key used by a truncate request
	rec := do(t, router, http.MethodPost, "/api/truncate", map[string]any{"value": "2024-01-03", "field": "month", "idempotency_key": "req-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: the key comes back on requests that would otherwise fail
	rec = do(t, router, http.MethodPost, "/api/difference", map[string]any{"from": "2024-01-02", "to": "2024-01-01", "field": "fortnight", "idempotency_key": "req-2"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, "/api/same", map[string]any{"a": "2024-01-02", "b": "2024-01-01", "field": "day", "idempotency_key": "req-2"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// THEN: nothing else was recorded
	rec = do(t, router, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RecordDTO](t, rec), 1)
}

func TestStrictProfileRejectsRollover(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "strict", Zone: "UTC"}).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "loose", Zone: "UTC", Lenient: true}).Code)

	body := map[string]any{"value": "2023-10-32", "field": "day", "profile": "loose"}
	rec := do(t, router, http.MethodPost, "/api/truncate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1698796800000), decode[TruncateResponse](t, rec).Millis)

	body["profile"] = "strict"
	rec = do(t, router, http.MethodPost, "/api/truncate", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// the server default is lenient
	delete(body, "profile")
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/truncate", body).Code)
}

func TestResetDatabase(t *testing.T) {
	router := newTestRouter(t)
	do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "seoul", Zone: "Asia/Seoul"})
	body := map[string]any{"from": "2024-01-02", "to": "2024-01-01", "field": "day", "idempotency_key": "req-3"}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/difference", body).Code)

	rec := do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/history", nil)
	assert.Empty(t, decode[[]RecordDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/profiles", nil)
	assert.Empty(t, decode[[]ProfileDTO](t, rec))

	// the key is free again
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/difference", body).Code)
}

func TestTruncateAndSame(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/truncate", map[string]any{
		"value": "2024-02-14T10:00:00Z", "field": "month", "direction": "end",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decode[TruncateResponse](t, rec)
	assert.Equal(t, "2024-02-29T23:59:59.999Z", tr.Value)
	assert.Equal(t, "end", tr.Direction)

	rec = do(t, router, http.MethodPost, "/api/truncate", map[string]any{"value": "2024-02-14", "field": "ms"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/same", map[string]any{
		"a": "2024-01-01T23:59:59.999Z", "b": "2024-01-02T00:00:00Z", "field": "day", "zone": "+09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[SameResponse](t, rec).Same)

	rec = do(t, router, http.MethodPost, "/api/same", map[string]any{
		"a": "2024-01-01T23:59:59.999Z", "b": "2024-01-02T00:00:00Z", "field": "day",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SameResponse](t, rec).Same)
}

func TestUnits(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/units/days", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(86400000), decode[UnitsResponse](t, rec).Milliseconds)

	rec = do(t, router, http.MethodGet, "/api/units/month", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/units/fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfiles(t *testing.T) {
	router := newTestRouter(t)

	// GIVEN: a Seoul profile with Sunday-first weeks
	rec := do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "seoul", Zone: "Asia/Seoul", FirstDay: "sunday"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/profiles/seoul", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[ProfileDTO](t, rec)
	assert.Equal(t, "Sunday", p.FirstDay)
	require.NotNil(t, p.UpdatedAt)

	// WHEN: a request names the profile
	rec = do(t, router, http.MethodPost, "/api/same", map[string]any{
		"a": "2024-01-01T23:59:59.999Z", "b": "2024-01-02T00:00:00Z", "field": "day", "profile": "seoul",
	})

	// THEN: the profile's zone applies
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[SameResponse](t, rec).Same)

	// Sunday-first: Saturday Jan 6 and Sunday Jan 7 fall in different weeks
	rec = do(t, router, http.MethodPost, "/api/same", map[string]any{
		"a": "2024-01-06T12:00", "b": "2024-01-07T12:00", "field": "week", "profile": "seoul",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SameResponse](t, rec).Same)

	rec = do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "mars", Zone: "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/profiles", ProfileDTO{Name: "x", Zone: "UTC", FirstDay: "someday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ProfileDTO](t, rec), 1)

	rec = do(t, router, http.MethodDelete, "/api/profiles/seoul", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/profiles/seoul", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodDelete, "/api/profiles/seoul", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/api/difference", map[string]any{"from": "2024-01-02", "to": "2024-01-01", "field": "day"})
	do(t, router, http.MethodPost, "/api/difference", map[string]any{"from": "2024-01-03", "to": "2024-01-01", "field": "day"})
	do(t, router, http.MethodPost, "/api/truncate", map[string]any{"value": "2024-01-03", "field": "year"})

	rec := do(t, router, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]RecordDTO](t, rec)
	assert.Len(t, all, 3)

	rec = do(t, router, http.MethodGet, "/api/history?operation=difference", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	diffs := decode[[]RecordDTO](t, rec)
	require.Len(t, diffs, 2)
	for _, d := range diffs {
		assert.Equal(t, "difference", d.Operation)
		assert.Equal(t, "half_up", d.Rounding)
		require.NotNil(t, d.Fraction)
	}

	rec = do(t, router, http.MethodGet, "/api/history?operation=truncate&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decode[[]RecordDTO](t, rec)
	require.Len(t, tr, 1)
	assert.Equal(t, "year", tr[0].Field)
	assert.Equal(t, []int64{1704240000000}, tr[0].Operands)

	rec = do(t, router, http.MethodGet, "/api/history?since=2030-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]RecordDTO](t, rec))

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/history?limit=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/history?operation=units", nil).Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}
