// Package seating contains the seat assignment engine: the seat catalog,
// occupancy tracking, companion pairing, priority ordering and the
// allocator that maps paid registrants onto free seats.  Nothing in this
// package performs I/O; callers load the roster and persist the result.
package seating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCapacity is the number of seats assumed for a group that is not
// listed in a catalog's capacity table.
const DefaultCapacity = 90

// Seat identifies one physical seat by its group and 1-based number.
type Seat struct {
	Group  string `json:"group"`
	Number int    `json:"number"`
}

// Label serializes the seat as "<group>-<number>" (e.g. "A-12").
func (s Seat) Label() string {
	return s.Group + "-" + strconv.Itoa(s.Number)
}

func (s Seat) String() string { return s.Label() }

// ErrInvalidLabel is returned by ParseLabel for malformed labels.
var ErrInvalidLabel = errors.New("invalid seat label")

// ParseLabel is the inverse of Seat.Label.  The label is split at its last
// hyphen; group ids are expected not to contain hyphens themselves, which
// keeps the round trip lossless.
func ParseLabel(label string) (Seat, error) {
	i := strings.LastIndexByte(label, '-')
	if i <= 0 || i == len(label)-1 {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	group, num := label[:i], label[i+1:]
	if num[0] == '0' || strings.IndexFunc(num, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return Seat{Group: group, Number: n}, nil
}

// Catalog describes the seat space: how many seats each group holds and the
// fallback capacity for groups it does not know about.
type Catalog struct {
	Capacities      map[string]int
	DefaultCapacity int
}

// NewCatalog copies caps into a new Catalog.  A non-positive def falls back
// to DefaultCapacity.
func NewCatalog(caps map[string]int, def int) Catalog {
	if def <= 0 {
		def = DefaultCapacity
	}
	m := make(map[string]int, len(caps))
	for g, n := range caps {
		m[g] = n
	}
	return Catalog{Capacities: m, DefaultCapacity: def}
}

// StandardGroups lists the regular groups in stage order (A is closest).
var StandardGroups = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P"}

// DefaultCatalog returns the venue layout used when no catalog file is
// configured: sixteen regular groups of 90 or 100 seats, a VIP block and a
// reserve block.
func DefaultCatalog() Catalog {
	return NewCatalog(map[string]int{
		"A": 90, "B": 100, "C": 100, "D": 90,
		"E": 100, "F": 90, "G": 90, "H": 100,
		"I": 100, "J": 90, "K": 90, "L": 100,
		"M": 90, "N": 100, "O": 100, "P": 90,
		"VIP":  40,
		"RESV": 34,
	}, DefaultCapacity)
}

// CapacityOf reports the seat count of group, or the default capacity when
// the group is not configured.
func (c Catalog) CapacityOf(group string) int {
	if n, ok := c.Capacities[group]; ok && n > 0 {
		return n
	}
	if c.DefaultCapacity > 0 {
		return c.DefaultCapacity
	}
	return DefaultCapacity
}

// Known reports whether group has an explicit capacity.
func (c Catalog) Known(group string) bool {
	_, ok := c.Capacities[group]
	return ok
}

// Contains reports whether s is an addressable seat.  Unconfigured groups
// use the default capacity, as they do when a run generates seats.
func (c Catalog) Contains(s Seat) bool {
	return s.Group != "" && s.Number >= 1 && s.Number <= c.CapacityOf(s.Group)
}

// Generate enumerates every seat of groups, in group order and ascending
// seat number.
func (c Catalog) Generate(groups []string) []Seat {
	return GenerateSeats(groups, c.CapacityOf)
}

// GenerateSeats emits seats 1..capacityOf(g) for each group g in order.
// The output is fully determined by its inputs.
func GenerateSeats(groups []string, capacityOf func(string) int) []Seat {
	total := 0
	for _, g := range groups {
		total += capacityOf(g)
	}
	seats := make([]Seat, 0, total)
	for _, g := range groups {
		n := capacityOf(g)
		for i := 1; i <= n; i++ {
			seats = append(seats, Seat{Group: g, Number: i})
		}
	}
	return seats
}

// uniqueGroups drops blank and repeated group ids, keeping first occurrences.
func uniqueGroups(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
