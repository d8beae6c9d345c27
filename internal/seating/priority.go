package seating

// UnrankedPriority is the rank of a request without a usable priority key.
// It sorts after every real rank.
const UnrankedPriority = 999

// PriorityRank derives the seating rank from a YYMMDD priority key.  Only
// the two year digits matter:
//
//	00-25 -> 1 (2000s)
//	90-99 -> 2
//	80-89 -> 3
//	70-79 -> 4
//	60-69 -> 5
//	other -> 6
//
// A key whose first two characters are not digits is unranked.
func PriorityRank(key string) (rank, year int) {
	if len(key) < 2 || !isDigit(key[0]) || !isDigit(key[1]) {
		return UnrankedPriority, 0
	}
	year = int(key[0]-'0')*10 + int(key[1]-'0')
	switch {
	case year <= 25:
		return 1, year
	case year >= 90:
		return 2, year
	case year >= 80:
		return 3, year
	case year >= 70:
		return 4, year
	case year >= 60:
		return 5, year
	}
	return 6, year
}

// priorityLess orders two keys.  Rank 1 breaks ties by the more recent year
// first (25 before 00); every other rank breaks ties by the lower year
// first (90 before 99).
// TODO: confirm the rank-1 direction with the event organisers.
func priorityLess(a, b string) bool {
	ra, ya := PriorityRank(a)
	rb, yb := PriorityRank(b)
	if ra != rb {
		return ra < rb
	}
	if ra == 1 {
		return ya > yb
	}
	return ya < yb
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
