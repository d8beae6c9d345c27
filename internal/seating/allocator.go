package seating

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// Policy selects how requests are ordered before seats are handed out.
type Policy string

const (
	// PolicyRandom shuffles singles and pairs independently.
	PolicyRandom Policy = "random"
	// PolicyPriority orders by birth-year rank (see PriorityRank).
	PolicyPriority Policy = "priority"
)

// ParsePolicy accepts "random" and "priority" (also "age"), case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return PolicyRandom, nil
	case "priority", "age":
		return PolicyPriority, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Request is one registrant waiting for seats.
type Request struct {
	ID          uint64
	TicketCount int
	PriorityKey string
}

func (r Request) tickets() int {
	if r.TicketCount == 0 {
		return 1
	}
	return r.TicketCount
}

// Assignment is the decision for one request.  Companion is nil for
// single-ticket requests.
type Assignment struct {
	RequestID uint64 `json:"registrant_id"`
	Primary   Seat   `json:"primary"`
	Companion *Seat  `json:"companion,omitempty"`
}

// Labels returns the labels of every seat in the assignment.
func (a Assignment) Labels() []string {
	if a.Companion == nil {
		return []string{a.Primary.Label()}
	}
	return []string{a.Primary.Label(), a.Companion.Label()}
}

// Result is the outcome of a successful run.  Unplaced lists single-ticket
// requests left without a seat because the pool ran dry.
type Result struct {
	Assignments []Assignment
	SeatsUsed   int
	Unplaced    []uint64
}

// Plan is the input of one allocation run.
type Plan struct {
	Groups   []string
	Occupied LabelSet
	Requests []Request
	Policy   Policy
}

// Allocate maps plan.Requests onto the free seats of plan.Groups.
//
// Companion requests are placed first across the whole pool using FindPair,
// then single requests take the lowest free seat in catalog order.  A
// companion request that cannot be paired fails the whole run and no
// assignment is returned.  Running out of seats for singles is not an error;
// the remaining ids are reported in Result.Unplaced.
//
// rng drives the random policy; nil uses the package-level generator.
func (c Catalog) Allocate(plan Plan, rng *rand.Rand) (Result, error) {
	groups := uniqueGroups(plan.Groups)
	if len(groups) == 0 {
		return Result{}, ErrNoGroups
	}
	if len(plan.Requests) == 0 {
		return Result{}, nil
	}

	var singles, pairs []Request
	needed := 0
	for _, r := range plan.Requests {
		switch r.tickets() {
		case 1:
			singles = append(singles, r)
		case 2:
			pairs = append(pairs, r)
		default:
			return Result{}, fmt.Errorf("%w: registrant %d has %d", ErrInvalidTicketCount, r.ID, r.TicketCount)
		}
		needed += r.tickets()
	}

	free := make([]Seat, 0)
	for _, s := range c.Generate(groups) {
		if !plan.Occupied.Has(s.Label()) {
			free = append(free, s)
		}
	}

	switch plan.Policy {
	case PolicyPriority:
		sortByPriority(pairs)
		sortByPriority(singles)
	case PolicyRandom:
		shuffle(rng, pairs)
		shuffle(rng, singles)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, plan.Policy)
	}

	if len(free) < needed {
		// Not even the first pair fits anywhere: report the pairing shortage.
		if len(pairs) > 0 {
			if _, _, ok := FindPair(free, nil); !ok {
				return Result{}, &PairingError{RequestID: pairs[0].ID}
			}
		}
		return Result{}, &CapacityError{Free: len(free), Needed: needed}
	}

	taken := make(LabelSet, needed)
	res := Result{Assignments: make([]Assignment, 0, len(plan.Requests))}

	for _, r := range pairs {
		a, b, ok := FindPair(free, taken)
		if !ok {
			return Result{}, &PairingError{RequestID: r.ID}
		}
		taken.Add(a.Label())
		taken.Add(b.Label())
		companion := b
		res.Assignments = append(res.Assignments, Assignment{RequestID: r.ID, Primary: a, Companion: &companion})
		res.SeatsUsed += 2
	}

	next := 0
	for i, r := range singles {
		for next < len(free) && taken.Has(free[next].Label()) {
			next++
		}
		if next >= len(free) {
			for _, rest := range singles[i:] {
				res.Unplaced = append(res.Unplaced, rest.ID)
			}
			break
		}
		s := free[next]
		taken.Add(s.Label())
		res.Assignments = append(res.Assignments, Assignment{RequestID: r.ID, Primary: s})
		res.SeatsUsed++
	}
	return res, nil
}

func sortByPriority(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return priorityLess(reqs[i].PriorityKey, reqs[j].PriorityKey)
	})
}

// shuffle is a Fisher-Yates shuffle.
func shuffle(rng *rand.Rand, reqs []Request) {
	swap := func(i, j int) { reqs[i], reqs[j] = reqs[j], reqs[i] }
	if rng == nil {
		rand.Shuffle(len(reqs), swap)
		return
	}
	rng.Shuffle(len(reqs), swap)
}

// NewRand returns a generator seeded with seed, for reproducible runs.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
