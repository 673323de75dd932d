// Package live implements in-play analysis: the match clock parser, the
// opportunity detector and the reliability validator.
package live

import (
	"strconv"
	"strings"
	"unicode"
)

// Markers seen in feed clock strings across locales.
var finishedMarkers = []string{"FT", "FINAL", "FIM", "TERMINADO", "ENDED"}

var halftimeMarkers = []string{"HT", "INTERVALO"}

// ParseClock extracts the current minute from a raw feed clock string such as
// "73'", "45+2", "HT" or "FT". Full-time markers map to 90, halftime to 45,
// anything unparseable to 0.
func ParseClock(raw string) int {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}
	for _, m := range finishedMarkers {
		if strings.Contains(s, m) {
			return 90
		}
	}
	for _, m := range halftimeMarkers {
		if strings.Contains(s, m) {
			return 45
		}
	}
	if n, ok := firstNumber(s); ok {
		return n
	}
	return 0
}

// IsFinished reports whether the clock string marks a completed match.
// A bare "90" only means the match reached minute 90: stoppage time may
// still be running, so it does not count as finished. "90+" does.
func IsFinished(raw string) bool {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return false
	}
	for _, m := range finishedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return strings.HasPrefix(s, "90+")
}

func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil
	}
	return 0, false
}
