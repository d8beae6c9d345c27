package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRank(t *testing.T) {
	cases := []struct {
		key  string
		rank int
		year int
	}{
		{"000101", 1, 0},
		{"250101", 1, 25},
		{"260101", 6, 26},
		{"590101", 6, 59},
		{"600101", 5, 60},
		{"750101", 4, 75},
		{"891231", 3, 89},
		{"990101", 2, 99},
		{"", UnrankedPriority, 0},
		{"9", UnrankedPriority, 0},
		{"ab0101", UnrankedPriority, 0},
	}
	for _, tc := range cases {
		rank, year := PriorityRank(tc.key)
		assert.Equal(t, tc.rank, rank, tc.key)
		assert.Equal(t, tc.year, year, tc.key)
	}
}

func TestPriorityOrdering(t *testing.T) {
	reqs := []Request{
		{ID: 1, PriorityKey: "000101"},
		{ID: 2, PriorityKey: "990101"},
		{ID: 3, PriorityKey: "250101"},
	}
	sortByPriority(reqs)
	assert.Equal(t, []uint64{3, 1, 2}, ids(reqs))
}

func TestPriorityTieBreakAsymmetry(t *testing.T) {
	reqs := []Request{
		{ID: 1, PriorityKey: "990505"},
		{ID: 2, PriorityKey: "900505"},
		{ID: 3, PriorityKey: "100505"},
		{ID: 4, PriorityKey: "200505"},
		{ID: 5},
		{ID: 6, PriorityKey: "450505"},
		{ID: 7, PriorityKey: "650505"},
	}
	sortByPriority(reqs)
	// rank 1 newest first, rank 2 oldest first, then 5, 6, unranked last.
	assert.Equal(t, []uint64{4, 3, 2, 1, 7, 6, 5}, ids(reqs))
}

func TestPrioritySortIsStableForEqualKeys(t *testing.T) {
	reqs := []Request{
		{ID: 10, PriorityKey: "850101"},
		{ID: 11},
		{ID: 12, PriorityKey: "851231"},
		{ID: 13},
	}
	sortByPriority(reqs)
	assert.Equal(t, []uint64{10, 12, 11, 13}, ids(reqs))
}

func ids(reqs []Request) []uint64 {
	out := make([]uint64, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}
