package model

// Quadrant is the Eisenhower-matrix classification of a task, derived from
// the urgent/important flag pair. It is the internal representation; the
// flag pair exists only at the storage boundary for wire compatibility.
type Quadrant int

const (
	// Uncategorized means the task has not been prioritized yet.
	Uncategorized Quadrant = iota
	// Do is urgent and important.
	Do
	// Schedule is important but not urgent.
	Schedule
	// Delegate is urgent but not important.
	Delegate
	// Eliminate is neither urgent nor important.
	Eliminate
)

// String returns a human-readable representation of the quadrant.
func (q Quadrant) String() string {
	switch q {
	case Uncategorized:
		return "uncategorized"
	case Do:
		return "do"
	case Schedule:
		return "schedule"
	case Delegate:
		return "delegate"
	case Eliminate:
		return "eliminate"
	default:
		return "unknown"
	}
}

// QuadrantOf derives the quadrant from an urgent/important flag pair.
// A pair with exactly one flag set is invalid input; it is treated as
// Uncategorized rather than guessed, matching Validate's rejection of
// such tasks before they are ever stored.
func QuadrantOf(urgent, important *bool) Quadrant {
	if urgent == nil || important == nil {
		return Uncategorized
	}
	switch {
	case *urgent && *important:
		return Do
	case !*urgent && *important:
		return Schedule
	case *urgent && !*important:
		return Delegate
	default:
		return Eliminate
	}
}

// Flags converts the quadrant back to the urgent/important pair used on
// the wire. Uncategorized yields a nil pair.
func (q Quadrant) Flags() (urgent, important *bool) {
	b := func(v bool) *bool { return &v }
	switch q {
	case Do:
		return b(true), b(true)
	case Schedule:
		return b(false), b(true)
	case Delegate:
		return b(true), b(false)
	case Eliminate:
		return b(false), b(false)
	default:
		return nil, nil
	}
}
