// Package series provides time-ordered sample storage and timestamp-based
// lookup shared by the flight track and the radar frame sequence.
package series

import (
	"sort"
	"time"
)

// Timestamped is any sample that carries its own timestamp.
type Timestamped interface {
	Time() time.Time
}

// Series holds samples sorted by ascending timestamp. Construction sorts
// once; after that the series is read-only and index lookups are O(1).
// Equal timestamps keep their input order (stable sort).
type Series[T Timestamped] struct {
	items []T
}

// New copies items and sorts the copy by ascending timestamp. The input
// slice is not modified.
func New[T Timestamped](items []T) *Series[T] {
	s := &Series[T]{items: append([]T(nil), items...)}
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Time().Before(s.items[j].Time())
	})
	return s
}

// Len reports the number of samples.
func (s *Series[T]) Len() int { return len(s.items) }

// At returns the sample at index i, 0-based in timestamp order.
func (s *Series[T]) At(i int) T { return s.items[i] }

// Items returns the sorted backing slice. Callers must not modify it.
func (s *Series[T]) Items() []T { return s.items }

// Span reports the first and last timestamps. ok is false for an empty
// series.
func (s *Series[T]) Span() (start, end time.Time, ok bool) {
	if len(s.items) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.items[0].Time(), s.items[len(s.items)-1].Time(), true
}
