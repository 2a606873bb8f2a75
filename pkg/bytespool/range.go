package bytespool

import (
	"strconv"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

type boundKind uint8

const (
	unbounded boundKind = iota
	included
	excluded
)

// Bound is one end of a Range.
type Bound struct {
	kind boundKind
	n    int
}

// Included returns a bound that contains n.
func Included(n int) Bound { return Bound{kind: included, n: n} }

// Excluded returns a bound that stops short of n.
func Excluded(n int) Bound { return Bound{kind: excluded, n: n} }

// Unbounded returns an open bound: the start or end of the buffer.
func Unbounded() Bound { return Bound{} }

// Range selects a window of a frozen buffer.
type Range struct {
	Start Bound
	End   Bound
}

// Full selects the whole buffer.
func Full() Range { return Range{} }

// From selects [start, len).
func From(start int) Range { return Range{Start: Included(start)} }

// To selects [0, end).
func To(end int) Range { return Range{End: Excluded(end)} }

// ToInclusive selects [0, end].
func ToInclusive(end int) Range { return Range{End: Included(end)} }

// Span selects [start, end).
func Span(start, end int) Range { return Range{Start: Included(start), End: Excluded(end)} }

// SpanInclusive selects [start, end].
func SpanInclusive(start, end int) Range { return Range{Start: Included(start), End: Included(end)} }

// String renders the range as "a..b", "a..=b", "..", etc.
func (r Range) String() string {
	var s string
	switch r.Start.kind {
	case included:
		s = strconv.Itoa(r.Start.n)
	case excluded:
		s = "(" + strconv.Itoa(r.Start.n)
	}
	s += ".."
	switch r.End.kind {
	case included:
		s += "=" + strconv.Itoa(r.End.n)
	case excluded:
		s += strconv.Itoa(r.End.n)
	}
	return s
}

// resolve turns r into [from, to) against a buffer of length n. Bounds
// outside the buffer are contract violations and panic.
func (r Range) resolve(n int) (from, to int) {
	switch r.Start.kind {
	case unbounded:
		from = 0
	case included:
		if r.Start.n < 0 || r.Start.n > n {
			panic(outOfRange("range start out of bounds", r, n))
		}
		from = r.Start.n
	case excluded:
		if r.Start.n < -1 || r.Start.n >= n {
			panic(outOfRange("range start out of bounds", r, n))
		}
		from = r.Start.n + 1
	}

	switch r.End.kind {
	case unbounded:
		to = n
	case included:
		if r.End.n < 0 || r.End.n >= n {
			panic(outOfRange("range end out of bounds", r, n))
		}
		to = r.End.n + 1
	case excluded:
		if r.End.n < 0 || r.End.n > n {
			panic(outOfRange("range end out of bounds", r, n))
		}
		to = r.End.n
	}

	if from > to {
		panic(outOfRange("range start after end", r, n))
	}
	return from, to
}

func outOfRange(msg string, r Range, n int) *errors.Error {
	return errors.New(errors.ErrorTypeValidation, msg).
		WithDetail("range", r.String()).
		WithDetail("len", n)
}
