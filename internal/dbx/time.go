package dbx

import "time"

// SQLite has no native timestamp type; timestamps are stored as RFC3339Nano
// strings in UTC so lexical order matches chronological order.
const timeLayout = time.RFC3339Nano

// TimeToDB formats t for storage in a TEXT column.
func TimeToDB(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// TimeFromDB parses a stored timestamp. An empty string yields the zero time.
func TimeFromDB(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
