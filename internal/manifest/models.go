package manifest

import (
	"strings"
	"time"

	"cxr/internal/labels"
)

// Status represents the preprocessing lifecycle of one subject.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDecoding Status = "decoding"
	StatusWritten  Status = "written"
	StatusFailed   Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDecoding,
	StatusWritten,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// Item is one subject's journal row.
type Item struct {
	ID           int64
	SubjectID    string
	Split        labels.Split
	Label        int
	Status       Status
	ArrayPath    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates journal counts per lifecycle state.
type Summary struct {
	Total   int
	Pending int
	Written int
	Failed  int
}
