package core

import "time"

// timeToSQL formats a date stored as TEXT in the cache.
func timeToSQL(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(time.RFC3339Nano)
}

// timeFromSQL parses a date stored by timeToSQL. Invalid dates are returned as zero.
func timeFromSQL(value string) time.Time {
	date, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return date
}
