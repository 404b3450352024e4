package timewindow

// Interval is the half-open clock range [Start, End).
type Interval struct {
	Start Clock
	End   Clock
}

// Span builds the interval starting at start and lasting minutes.
func Span(start Clock, minutes int) Interval {
	return Interval{Start: start, End: start.Add(minutes)}
}

func (i Interval) Minutes() int { return int(i.End - i.Start) }

func (i Interval) Empty() bool { return i.End <= i.Start }

// Contains reports whether c falls in [Start, End).
func (i Interval) Contains(c Clock) bool { return c >= i.Start && c < i.End }

// Overlaps reports whether the two half-open intervals share any minute.
// Touching intervals ([09:00,09:30) and [09:30,10:00)) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return i.Start < o.End && o.Start < i.End
}

// Intersect returns the common part of i and o.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	out := Interval{Start: max(i.Start, o.Start), End: min(i.End, o.End)}
	if out.Empty() {
		return Interval{}, false
	}
	return out, true
}

// Step walks window in increments of step minutes and emits every slot of
// length minutes that fits entirely inside it.
func Step(window Interval, length, step int) []Interval {
	if length <= 0 || step <= 0 || window.Empty() {
		return nil
	}
	var out []Interval
	for s := window.Start; s.Add(length) <= window.End; s = s.Add(step) {
		out = append(out, Span(s, length))
	}
	return out
}
