package normalizer

import (
	"fmt"
	"strings"
	"time"
)

// DateLayouts are tried in order. ISO dates come first since every Swedish
// bank export uses them.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"20060102",
	"02.01.2006",
}

// ParseDate parses s with the first matching layout in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyValue
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}
