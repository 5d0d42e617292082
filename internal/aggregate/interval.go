package aggregate

import (
	"fmt"
	"strings"

	"poolScope/internal/model"
)

// Interval is a candle bucket width.
type Interval string

const (
	Hourly Interval = "hourly"
	Daily  Interval = "daily"
	Weekly Interval = "weekly"
)

// ParseInterval accepts hourly, daily or weekly (case-insensitive).
func ParseInterval(value string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(value))) {
	case Hourly:
		return Hourly, nil
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", fmt.Errorf("%w: invalid interval %q", model.ErrValidation, value)
	}
}

// Seconds returns the bucket width in seconds.
func (i Interval) Seconds() uint64 {
	switch i {
	case Hourly:
		return 3600
	case Daily:
		return 86400
	case Weekly:
		return 604800
	default:
		return 0
	}
}

func (i Interval) String() string {
	return string(i)
}

// windowStart aligns ts to the bucket boundary. Weeks are aligned to the
// Unix epoch, so they start on Thursday 00:00 UTC.
func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
