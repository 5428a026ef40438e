// Package util holds small helpers shared across the server: timestamps,
// identifier generation, name sanitizing and human-readable formatting.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const maxNameLength = 20

// CurrentTimestamp returns the current Unix time in seconds.
func CurrentTimestamp() uint64 {
	return uint64(time.Now().Unix())
}

// CurrentTimestampMillis returns the current Unix time in milliseconds.
func CurrentTimestampMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// GenerateID returns a 32-character random hex identifier.
func GenerateID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived id rather than panicking in a request path.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}

// GenerateShortID returns an 8-character random hex identifier,
// used for request ids on the wire.
func GenerateShortID() string {
	return GenerateID()[:8]
}

// SanitizeName trims a player name and keeps only letters, digits,
// underscore and hyphen, capped at 20 characters.
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if sb.Len() >= maxNameLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(bytes uint64) string {
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", bytes, units[idx])
	}
	return fmt.Sprintf("%.1f %s", size, units[idx])
}

// FormatDuration renders a second count as a compact "2h 30m" style string.
func FormatDuration(seconds uint64) string {
	const (
		minute = 60
		hour   = 60 * minute
		day    = 24 * hour
	)

	switch {
	case seconds < minute:
		return fmt.Sprintf("%ds", seconds)
	case seconds < hour:
		m, s := seconds/minute, seconds%minute
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	case seconds < day:
		h, m := seconds/hour, (seconds%hour)/minute
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		d, h := seconds/day, (seconds%day)/hour
		if h == 0 {
			return fmt.Sprintf("%dd", d)
		}
		return fmt.Sprintf("%dd %dh", d, h)
	}
}
