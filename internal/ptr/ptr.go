// Package ptr holds pointer helpers for optional report fields.
package ptr

import "time"

// TimePtr returns a pointer to value, for timestamps that are absent
// until the event happened.
func TimePtr(value time.Time) *time.Time {
	return &value
}
