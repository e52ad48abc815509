package util

import "time"

// SessionDate returns the trading date of a unix timestamp as seen by an exchange
// gmtOffset seconds away from UTC, stamped at UTC midnight.
func SessionDate(unix int64, gmtOffset int) time.Time {
	t := time.Unix(unix, 0).In(time.FixedZone("exchange", gmtOffset))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnixMilli converts a millisecond timestamp to UTC. Non-positive values map to the zero time.
func UnixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
