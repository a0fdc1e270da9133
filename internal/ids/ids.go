package ids

import "github.com/segmentio/ksuid"

// New returns a time-ordered, globally unique identifier for persisted records.
func New() string {
	return ksuid.New().String()
}
