package logger

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLevel_Includes(t *testing.T) {
	for _, a := range Levels() {
		assert.True(t, a.Includes(a), a)
		for _, b := range Levels() {
			assert.Equal(t, a.Rank() <= b.Rank(), a.Includes(b), "%s includes %s",
				a, b)
			assert.Equal(t, a.Rank() > b.Rank(), a.IsHigherThan(b))
			assert.Equal(t, a.Rank() < b.Rank(), a.IsLowerThan(b))
			for _, c := range Levels() {
				if a.Includes(b) && b.Includes(c) {
					assert.True(t, a.Includes(c), "%s %s %s", a, b, c)
				}
			}
		}
	}
}

func TestLevels_ordered(t *testing.T) {
	levels := Levels()
	require.Len(t, levels, 10)
	for i := 1; i < len(levels); i++ {
		assert.True(t, levels[i-1].IsLowerThan(levels[i]))
	}
	assert.Equal(t, Debug, levels[0])
	assert.Equal(t, Emergency, levels[len(levels)-1])
}

func TestLevel_Conversions(t *testing.T) {
	tests := []struct {
		level   Level
		name    string
		wire    string
		numeric int
	}{
		{Debug, "DEBUG", "debug", 7},
		{Timer, "TIMER", "info", 8},
		{Event, "EVENT", "info", 9},
		{Info, "INFO", "info", 6},
		{Notice, "NOTICE", "notice", 5},
		{Warning, "WARNING", "warning", 4},
		{Error, "ERROR", "error", 3},
		{Critical, "CRITICAL", "critical", 2},
		{Alert, "ALERT", "alert", 1},
		{Emergency, "EMERGENCY", "emergency", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.level.Name())
			assert.Equal(t, tt.name, tt.level.String())
			assert.Equal(t, tt.wire, tt.level.WireName())
			assert.Equal(t, tt.numeric, tt.level.NumericScale())
			assert.True(t, tt.level.Valid())
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range Levels() {
		for _, s := range []string{l.Name(), l.WireName()} {
			parsed, err := ParseLevel(s)
			require.NoError(t, err, s)
			if l == Timer || l == Event {
				if s == l.WireName() {
					assert.Equal(t, Info, parsed)
					continue
				}
			}
			assert.Equal(t, l, parsed, s)
		}
	}

	l, err := ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, Warning, l)

	l, err = ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, Warning, l)

	_, err = ParseLevel("verbose")
	require.ErrorIs(t, err, ErrUnknownLevel)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLevelFromRank(t *testing.T) {
	l, err := LevelFromRank(550)
	require.NoError(t, err)
	assert.Equal(t, Alert, l)

	_, err = LevelFromRank(42)
	require.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevel_Slog(t *testing.T) {
	for _, l := range Levels() {
		assert.Equal(t, l, LevelFromSlog(l.Slog()), l)
	}
	assert.Equal(t, Debug, LevelFromSlog(slog.LevelDebug-8))
	assert.Equal(t, Info, LevelFromSlog(slog.LevelInfo+1))
	assert.Equal(t, Error, LevelFromSlog(slog.LevelError+1))
	assert.Equal(t, Emergency, LevelFromSlog(slog.LevelError+100))
}

func TestLevel_Unmarshal(t *testing.T) {
	var v struct {
		Level Level `json:"level" yaml:"level"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"level":"notice"}`), &v))
	assert.Equal(t, Notice, v.Level)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"NOTICE"}`, string(b))

	require.NoError(t, yaml.Unmarshal([]byte("level: CRITICAL"), &v))
	assert.Equal(t, Critical, v.Level)

	require.ErrorIs(t, yaml.Unmarshal([]byte("level: loud"), &v),
		ErrUnknownLevel)
}
