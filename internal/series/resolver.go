package series

import (
	"sort"
	"time"
)

// Resolver answers "which sample is effective at time t": the sample with
// the greatest timestamp not after t. Queries before the first sample
// resolve to index 0 rather than failing, so playback always has a frame
// to show. Among equal timestamps the last of the run wins.
//
// The resolver keeps a cursor at the previously resolved index. Playback
// queries are near-monotonic, so most lookups advance the cursor a step
// or two; a query behind the cursor restarts with a binary search over
// the whole series. A Resolver is not safe for concurrent use.
type Resolver[T Timestamped] struct {
	s      *Series[T]
	cursor int
}

// NewResolver returns a resolver over s with no position history.
func NewResolver[T Timestamped](s *Series[T]) *Resolver[T] {
	return &Resolver[T]{s: s, cursor: -1}
}

// Resolve returns the sample effective at t and its index. The series
// must be non-empty.
func (r *Resolver[T]) Resolve(t time.Time) (T, int) {
	n := r.s.Len()
	i := r.cursor
	if i < 0 || i >= n || r.s.At(i).Time().After(t) {
		// Cold start or a jump behind the cursor: binary search for the
		// first sample after t, then step back one.
		i = sort.Search(n, func(k int) bool {
			return r.s.At(k).Time().After(t)
		}) - 1
		if i < 0 {
			i = 0
		}
	} else {
		// Walk forward through every sample still not after t. This also
		// lands on the last sample of a run of equal timestamps.
		for i+1 < n && !r.s.At(i+1).Time().After(t) {
			i++
		}
	}
	r.cursor = i
	return r.s.At(i), i
}

// Reset clears the cursor so the next Resolve starts from a full search.
func (r *Resolver[T]) Reset() {
	r.cursor = -1
}
