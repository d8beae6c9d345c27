package seating

// LabelSet is a set of seat labels.
type LabelSet map[string]struct{}

// NewLabelSet builds a set from labels, skipping empty strings.
func NewLabelSet(labels ...string) LabelSet {
	s := make(LabelSet, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

func (s LabelSet) Add(label string) {
	if label != "" {
		s[label] = struct{}{}
	}
}

func (s LabelSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Clone returns an independent copy so callers can extend it without
// touching the original snapshot.
func (s LabelSet) Clone() LabelSet {
	c := make(LabelSet, len(s))
	for l := range s {
		c[l] = struct{}{}
	}
	return c
}

// Holding is the seat state of one roster entry: the primary slot and the
// companion slot, either of which may be empty.
type Holding struct {
	RegistrantID uint64
	Primary      string
	Companion    string
}

// ComputeOccupied unions every non-empty primary and companion label of
// roster.  It must be called on a fresh roster snapshot before each run.
func ComputeOccupied(roster []Holding) LabelSet {
	occupied := make(LabelSet, len(roster)*2)
	for _, h := range roster {
		occupied.Add(h.Primary)
		occupied.Add(h.Companion)
	}
	return occupied
}
