package utils

import "time"

// GetCurrentTime is the clock behind stored timestamps: always UTC.
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
