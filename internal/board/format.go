package board

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date form used for Event.Date.
	DateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// FormatTime12h converts "HH:MM" to "h:MM AM/PM". Input that is not a
// 24-hour time is returned unchanged.
func FormatTime12h(value string) string {
	hours, minutes, ok := SplitTime(value)
	if !ok {
		return value
	}
	h, err := strconv.Atoi(hours)
	if err != nil {
		return value
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, minutes, suffix)
}

// SplitTime splits "HH:MM" into its hour and minute parts.
func SplitTime(value string) (hour, minute string, ok bool) {
	hour, minute, ok = strings.Cut(strings.TrimSpace(value), ":")
	if !ok || hour == "" || minute == "" {
		return "", "", false
	}
	return hour, minute, true
}

// JoinTime builds "HH:MM" from hour and minute form fields, zero padding
// single digits.
func JoinTime(hour, minute string) string {
	return pad2(strings.TrimSpace(hour)) + ":" + pad2(strings.TrimSpace(minute))
}

func pad2(v string) string {
	if len(v) == 1 {
		return "0" + v
	}
	return v
}

// ValidTime reports whether value is a 24-hour "HH:MM" time.
func ValidTime(value string) bool {
	_, err := time.Parse(timeLayout, value)
	return err == nil
}

// EscapeText escapes free text for display inside markup.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// ParseDate parses an ISO calendar date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// FormatDisplayDate renders an ISO date as "Nov 15, 2025".
func FormatDisplayDate(value string) string {
	parsed, ok := ParseDate(value, time.UTC)
	if !ok {
		return value
	}
	return parsed.Format("Jan 2, 2006")
}

// DateBadge returns the day of month and short month name for the badge.
func DateBadge(value string) (day, month string) {
	parsed, ok := ParseDate(value, time.UTC)
	if !ok {
		return "", ""
	}
	return strconv.Itoa(parsed.Day()), parsed.Format("Jan")
}

// Midnight truncates t to the start of its day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
