package service

import (
	"strings"
	"time"
)

const displayLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// Layouts accepted for the appointment field. Values without an offset are
// read in the server's zone.
var appointmentLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// FormatAppointment renders a requested appointment time in loc. Values that
// do not parse are returned unchanged.
func FormatAppointment(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range appointmentLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc).Format(displayLayout)
		}
	}
	return raw
}
