package playlist

// probe reports whether the position is acceptable.
type probe func(index int) bool

// scanForward moves from start by one position at a time, wrapping to 0 past
// the last index, for at most n+1 attempts. It returns the last probed
// position, whether probe accepted it, and how many times it wrapped.
func scanForward(start, n int, ok probe) (pos int, found bool, wraps int) {
	pos = start
	for attempts := n; attempts >= 0; attempts-- {
		pos++
		if pos >= n {
			pos = 0
			wraps++
		}
		if ok(pos) {
			return pos, true, wraps
		}
	}
	return pos, false, wraps
}

// scanBackward is scanForward in the other direction, wrapping to n-1 below 0.
func scanBackward(start, n int, ok probe) (pos int, found bool) {
	pos = start
	for attempts := n; attempts >= 0; attempts-- {
		pos--
		if pos < 0 {
			pos = n - 1
		}
		if ok(pos) {
			return pos, true
		}
	}
	return pos, false
}
