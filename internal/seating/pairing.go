package seating

import "sort"

// FindPair picks two seats of the same group for a companion request.
//
// Groups are visited in the order they first appear in free.  Inside a
// group only seats missing from excluded count; the lowest consecutive pair
// (n, n+1) wins, and when the group has no consecutive pair but at least two
// free seats, its two lowest seats are returned instead.  The search moves
// on only past groups with fewer than two free seats.
func FindPair(free []Seat, excluded LabelSet) (Seat, Seat, bool) {
	var order []string
	numbers := make(map[string][]int)
	for _, s := range free {
		if excluded.Has(s.Label()) {
			continue
		}
		if _, ok := numbers[s.Group]; !ok {
			order = append(order, s.Group)
		}
		numbers[s.Group] = append(numbers[s.Group], s.Number)
	}

	for _, g := range order {
		nums := numbers[g]
		if len(nums) < 2 {
			continue
		}
		sort.Ints(nums)
		for i := 0; i+1 < len(nums); i++ {
			if nums[i+1] == nums[i]+1 {
				return Seat{g, nums[i]}, Seat{g, nums[i+1]}, true
			}
		}
		return Seat{g, nums[0]}, Seat{g, nums[1]}, true
	}
	return Seat{}, Seat{}, false
}
