package dashboard

import (
	"fmt"
	"strings"
	"time"

	"ecomdash/internal/models"
)

const dateLayout = "2006-01-02"

// InvalidRangeError is a user supplied range that cannot be used.
type InvalidRangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]: %s", e.Start, e.End, e.Reason)
}

// ParseRange reads YYYY-MM-DD bounds. A missing bound falls back to def.
func ParseRange(start, end string, def models.DateRange) (models.DateRange, error) {
	r := def
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return r, &InvalidRangeError{Start: start, End: end, Reason: "start is not a YYYY-MM-DD date"}
		}
		r.Start = t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return r, &InvalidRangeError{Start: start, End: end, Reason: "end is not a YYYY-MM-DD date"}
		}
		r.End = t
	}
	if r.Start.After(r.End) {
		return r, &InvalidRangeError{
			Start:  r.Start.Format(dateLayout),
			End:    r.End.Format(dateLayout),
			Reason: "start is after end",
		}
	}
	return r, nil
}
