package gatepass

import (
	"time"

	"github.com/frahmantamala/gatepass/internal/core/common/validation"
)

const (
	placeholder    = "-"
	dateTimeLayout = "02 Jan 2006, 15:04"
)

// FormatTime renders a wire time of day as HH:MM.
func FormatTime(value string) string {
	if value == "" {
		return placeholder
	}
	t, err := validation.ParseTimeOfDay(value)
	if err != nil {
		return value
	}
	return t.Format("15:04")
}

func FormatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return placeholder
	}
	return t.Local().Format(dateTimeLayout)
}
