package models

import (
	"sort"
	"sync"
)

// SeverityLevels maps numeric alert severity codes to display labels.
// The mapping is deployment-configurable and may be replaced at runtime
// when the labels file changes, so reads go through a lock.
type SeverityLevels struct {
	mu     sync.RWMutex
	labels map[int]string
	order  []int
}

// DefaultSeverityLevels returns the built-in code to label mapping.
func DefaultSeverityLevels() *SeverityLevels {
	s := &SeverityLevels{}
	s.Replace(map[int]string{
		1: "Critical",
		2: "High",
		3: "Medium",
		4: "Low",
	})
	return s
}

// Label returns the display label for a severity code. The second return
// value is false when the code has no mapping; callers must then keep the
// original raw value rather than substitute a sentinel.
func (s *SeverityLevels) Label(code int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.labels[code]
	return label, ok
}

// Labels returns the mapped labels in ascending code order, which is the
// canonical severity rank (lowest code = most severe).
func (s *SeverityLevels) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, s.labels[code])
	}
	return out
}

// Replace swaps in a new mapping atomically.
func (s *SeverityLevels) Replace(labels map[int]string) {
	order := make([]int, 0, len(labels))
	for code := range labels {
		order = append(order, code)
	}
	sort.Ints(order)

	copied := make(map[int]string, len(labels))
	for code, label := range labels {
		copied[code] = label
	}

	s.mu.Lock()
	s.labels = copied
	s.order = order
	s.mu.Unlock()
}
