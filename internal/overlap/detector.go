// Package overlap classifies conflicts between half-open intervals [Start, End).
package overlap

// Span is an interval on an ordinal axis chosen by the caller, e.g. seconds since midnight
// for weekly windows or Unix seconds for dated bookings.
type Span struct {
	Start int64
	End   int64
}

func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Overlaps is the plain half-open test: touching endpoints do not overlap.
func Overlaps(a, b Span) bool {
	return a.Start < b.End && b.Start < a.End
}

func Contains(outer, inner Span) bool {
	return outer.Start <= inner.Start && outer.End >= inner.End
}

type Kind int

const (
	KindNone Kind = iota
	// KindStartsWithin: the existing interval starts inside the candidate.
	KindStartsWithin
	// KindEndsWithin: the existing interval ends inside the candidate.
	KindEndsWithin
	// KindContains: the existing interval covers the whole candidate.
	KindContains
)

func (k Kind) String() string {
	switch k {
	case KindStartsWithin:
		return "starts_within"
	case KindEndsWithin:
		return "ends_within"
	case KindContains:
		return "contains"
	default:
		return "none"
	}
}

type Result[T any] struct {
	Kind    Kind
	Matches []T
}

func (r Result[T]) Conflict() bool {
	return len(r.Matches) > 0
}

// First returns the conflicting record callers cite in rejection messages.
func (r Result[T]) First() (T, bool) {
	var zero T
	if len(r.Matches) == 0 {
		return zero, false
	}
	return r.Matches[0], true
}

// Detect reports the existing records that overlap candidate. Classes are evaluated in the
// order starts-within, ends-within, contains, and only the first non-empty class is
// returned; records overlapping under a later class are not reported alongside it.
// Matches keep the order of existing.
func Detect[T any](candidate Span, existing []T, span func(T) Span) Result[T] {
	if len(existing) == 0 {
		return Result[T]{}
	}

	var startsWithin, endsWithin, contains []T
	for _, e := range existing {
		s := span(e)
		if candidate.Start <= s.Start && s.Start < candidate.End {
			startsWithin = append(startsWithin, e)
		}
		if candidate.Start < s.End && s.End <= candidate.End {
			endsWithin = append(endsWithin, e)
		}
		if s.Start <= candidate.Start && s.End >= candidate.End {
			contains = append(contains, e)
		}
	}

	switch {
	case len(startsWithin) > 0:
		return Result[T]{Kind: KindStartsWithin, Matches: startsWithin}
	case len(endsWithin) > 0:
		return Result[T]{Kind: KindEndsWithin, Matches: endsWithin}
	case len(contains) > 0:
		return Result[T]{Kind: KindContains, Matches: contains}
	default:
		return Result[T]{}
	}
}
