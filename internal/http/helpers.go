package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timelog/internal/core"
)

// parseDateParam extracts the date from the "date" query or form parameter.
// Returns today as the default if not provided; a malformed value is an error
// rather than silently today, so typos in bookmarked URLs surface.
func parseDateParam(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		v = strings.TrimSpace(r.FormValue("date"))
	}
	if v == "" {
		return core.Today(), nil
	}
	return core.ParseDate(v)
}

// formatHoursMinutes formats total minutes as "8h 30m".
func formatHoursMinutes(total int) string {
	h, m := core.HoursMinutes(total)
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatPercent renders a category share with one decimal, e.g. "33.3%".
func formatPercent(minutes int) string {
	return strconv.FormatFloat(core.Percentage(minutes), 'f', 1, 64) + "%"
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// generateStateToken creates the anti-forgery state for the OAuth redirect.
func generateStateToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("st_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
