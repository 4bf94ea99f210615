package stores

import (
	"time"

	"github.com/oarkflow/date"
)

// parseFlexibleTime handles the assorted timestamp formats SQL drivers hand
// back as text.
func parseFlexibleTime(s string) (time.Time, error) {
	return date.Parse(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqlNullTimeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
