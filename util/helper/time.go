package helper_util

import "time"

// Hasura serializes timestamptz with microsecond precision and a numeric
// zone offset, which RFC3339 parsing accepts.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err
}
