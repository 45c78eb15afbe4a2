package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnknownLevel         = errors.New("unknown level")
)

// Level is the severity of a record. Its value is the rank used for
// filtering: a bigger value is more severe.
type Level int

const (
	Debug     Level = 100
	Timer     Level = 150
	Event     Level = 160
	Info      Level = 200
	Notice    Level = 250
	Warning   Level = 300
	Error     Level = 400
	Critical  Level = 500
	Alert     Level = 550
	Emergency Level = 600
)

// Levels ordered least severe to most severe
var allLevels = [...]Level{
	Debug, Timer, Event, Info, Notice, Warning, Error, Critical, Alert,
	Emergency,
}

type levelInfo struct {
	name    string
	wire    string
	numeric int
	slog    slog.Level
}

var levelTable = map[Level]levelInfo{
	Debug:     {"DEBUG", "debug", 7, slog.LevelDebug},
	Timer:     {"TIMER", "info", 8, slog.LevelDebug + 1},
	Event:     {"EVENT", "info", 9, slog.LevelDebug + 2},
	Info:      {"INFO", "info", 6, slog.LevelInfo},
	Notice:    {"NOTICE", "notice", 5, slog.LevelInfo + 2},
	Warning:   {"WARNING", "warning", 4, slog.LevelWarn},
	Error:     {"ERROR", "error", 3, slog.LevelError},
	Critical:  {"CRITICAL", "critical", 2, slog.LevelError + 4},
	Alert:     {"ALERT", "alert", 1, slog.LevelError + 6},
	Emergency: {"EMERGENCY", "emergency", 0, slog.LevelError + 8},
}

// Levels returns all levels ordered by rank.
func Levels() []Level { return allLevels[:] }

func (l Level) Rank() int { return int(l) }

// Includes reports whether a handler set to l accepts records at level
// other, i.e. other is at least as severe as l.
func (l Level) Includes(other Level) bool { return l <= other }

func (l Level) IsHigherThan(other Level) bool { return l > other }

func (l Level) IsLowerThan(other Level) bool { return l < other }

// Name returns the canonical uppercase name, e.g. "WARNING".
func (l Level) Name() string {
	if info, ok := levelTable[l]; ok {
		return info.name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// WireName returns the lowercase name used by downstream log processors.
// Timer and Event have no wire level of their own and map to "info".
func (l Level) WireName() string {
	if info, ok := levelTable[l]; ok {
		return info.wire
	}
	return strings.ToLower(l.Name())
}

// NumericScale returns the RFC 5424 severity, 0 (emergency) to 7 (debug).
// Timer and Event extend the scale to 8 and 9.
func (l Level) NumericScale() int {
	if info, ok := levelTable[l]; ok {
		return info.numeric
	}
	return levelTable[nearestLevel(l)].numeric
}

func (l Level) Slog() slog.Level {
	if info, ok := levelTable[l]; ok {
		return info.slog
	}
	return levelTable[nearestLevel(l)].slog
}

func (l Level) String() string { return l.Name() }

func (l Level) Valid() bool {
	_, ok := levelTable[l]
	return ok
}

// nearestLevel returns the most severe known level not above l, or Debug.
func nearestLevel(l Level) Level {
	found := Debug
	for _, known := range allLevels {
		if known > l {
			break
		}
		found = known
	}
	return found
}

// ParseLevel looks up a level by its canonical or wire name, ignoring case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, l := range allLevels {
		if name == strings.ToLower(l.Name()) {
			return l, nil
		}
	}
	switch name {
	case "warn":
		return Warning, nil
	case "err":
		return Error, nil
	case "crit":
		return Critical, nil
	case "emerg":
		return Emergency, nil
	}
	return 0, fmt.Errorf("%w: %w %q", ErrInvalidConfiguration, ErrUnknownLevel,
		s)
}

// LevelFromRank returns the level with exactly rank r.
func LevelFromRank(r int) (Level, error) {
	l := Level(r)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %w rank %d", ErrInvalidConfiguration,
			ErrUnknownLevel, r)
	}
	return l, nil
}

// LevelFromSlog maps a slog level to the most severe level whose slog
// equivalent is not above it.
func LevelFromSlog(sl slog.Level) Level {
	found := Debug
	for _, l := range allLevels {
		if levelTable[l].slog > sl {
			continue
		}
		if levelTable[l].slog >= levelTable[found].slog {
			found = l
		}
	}
	return found
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.Name()), nil }

func (l *Level) UnmarshalText(text []byte) (err error) {
	*l, err = ParseLevel(string(text))
	return
}

func (l Level) MarshalJSON() ([]byte, error) { return json.Marshal(l.Name()) }

func (l *Level) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}

var _ yaml.Unmarshaler = (*Level)(nil)

func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}
