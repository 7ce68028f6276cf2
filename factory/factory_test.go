package factory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calendar-engine/calendar"
)

func TestDifferenceJSON_Parse(t *testing.T) {
	f := New(calendar.DefaultConfig())

	var dj DifferenceJSON
	require.NoError(t, json.Unmarshal([]byte(`{
		"from": "2024-03-30",
		"to": 1706659200000,
		"field": "months",
		"rounding": "half-down",
		"zone": "UTC"
	}`), &dj))

	in, err := f.Difference(dj, f.Default)
	require.NoError(t, err)
	assert.Equal(t, calendar.Month, in.Field)
	assert.Equal(t, calendar.HalfDown, in.Rounding)
	assert.Equal(t, "2024-01-31T00:00:00.000Z", in.To.String())

	n, err := calendar.Difference(in.From, in.To, in.Field, in.Rounding)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDifferenceJSON_DefaultsAndErrors(t *testing.T) {
	f := New(calendar.DefaultConfig())

	in, err := f.Difference(DifferenceJSON{From: "2024-01-01", To: "2024-01-02", Field: "day"}, f.Default)
	require.NoError(t, err)
	assert.Equal(t, calendar.HalfUp, in.Rounding)

	_, err = f.Difference(DifferenceJSON{From: "2024-01-01", To: "2024-01-02", Field: "fortnight"}, f.Default)
	assert.ErrorIs(t, err, calendar.ErrUnsupportedField)

	_, err = f.Difference(DifferenceJSON{From: "2024-01-01", To: "2024-01-02", Field: "day", Rounding: "sideways"}, f.Default)
	assert.Error(t, err)

	_, err = f.Difference(DifferenceJSON{From: "yesterday", To: "2024-01-02", Field: "day"}, f.Default)
	assert.ErrorContains(t, err, "from")

	var dj DifferenceJSON
	assert.Error(t, json.Unmarshal([]byte(`{"from": 1.5}`), &dj))
}

func TestValue_Formats(t *testing.T) {
	f := New(calendar.DefaultConfig())
	seoul, err := f.Config(ZoneJSON{Zone: "Asia/Seoul"}, f.Default)
	require.NoError(t, err)

	tests := []struct {
		in   string
		cfg  calendar.Config
		want int64
	}{
		{"2024-01-01T00:00:00Z", f.Default, 1704067200000},
		{"2024-01-01T09:00:00+09:00", f.Default, 1704067200000},
		{"2024-01-01", f.Default, 1704067200000},
		{"2024-01-01T09:00", seoul, 1704067200000},
		{"2024-01-01 09:00:00.250", seoul, 1704067200250},
		{"1704067200000", f.Default, 1704067200000},
	}
	for _, tt := range tests {
		v, err := f.Value(tt.in, tt.cfg)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v.Millis(), tt.in)
	}

	f.Clock = calendar.FixedClock{T: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	v, err := f.Value("now", f.Default)
	require.NoError(t, err)
	assert.Equal(t, 2030, v.Year())

	_, err = f.Value("", f.Default)
	assert.Error(t, err)
}

func TestValue_Leniency(t *testing.T) {
	f := New(calendar.DefaultConfig())
	strict := f.Default
	strict.Lenient = false

	// GIVEN: October 32 as a local date
	v, err := f.Value("2023-10-32", f.Default)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-01T00:00:00.000Z", v.String())

	v, err = f.Value("2023-02-29T25:30", f.Default)
	require.NoError(t, err)
	assert.Equal(t, "2023-03-02T01:30:00.000Z", v.String())

	// THEN: a strict config rejects the same inputs
	_, err = f.Value("2023-10-32", strict)
	assert.ErrorIs(t, err, calendar.ErrFieldOutOfRange)
	_, err = f.Value("2023-02-29T25:30", strict)
	assert.ErrorIs(t, err, calendar.ErrFieldOutOfRange)

	v, err = f.Value("2024-02-29 23:59:59.5", strict)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29T23:59:59.500Z", v.String())

	_, err = f.Value("2024-02-29T", strict)
	assert.Error(t, err)
}

func TestParseZone(t *testing.T) {
	for in, offset := range map[string]int{
		"UTC": 0, "": 0, "+09:00": 9 * 3600, "UTC+9": 9 * 3600, "-0330": -(3*3600 + 1800), "GMT-5": -5 * 3600,
	} {
		loc, err := ParseZone(in)
		require.NoError(t, err, in)
		_, got := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
		assert.Equal(t, offset, got, in)
	}

	loc, err := ParseZone("Asia/Seoul")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())

	for _, bad := range []string{"Local", "Mars/Olympus", "+25:00"} {
		_, err := ParseZone(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := ParseWeekday("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	wd, err = ParseWeekday("mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wd)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestTruncateAndSame(t *testing.T) {
	f := New(calendar.DefaultConfig())

	in, err := f.Truncate(TruncateJSON{Value: "2024-02-14T10:00:00Z", Field: "month", Direction: "end"}, f.Default)
	require.NoError(t, err)
	assert.False(t, in.TowardStart)
	got, err := calendar.Truncate(in.Value, in.Field, in.TowardStart)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29T23:59:59.999Z", got.String())

	_, err = f.Truncate(TruncateJSON{Value: "2024-02-14", Field: "month", Direction: "middle"}, f.Default)
	assert.Error(t, err)

	s, err := f.Same(SameJSON{A: "2024-01-01T23:59:59.999Z", B: "2024-01-02T00:00:00Z", Field: "day", ZoneJSON: ZoneJSON{Zone: "+09:00"}}, f.Default)
	require.NoError(t, err)
	same, err := calendar.SameBucket(s.A, s.B, s.Field, s.Config)
	require.NoError(t, err)
	assert.True(t, same)
}
