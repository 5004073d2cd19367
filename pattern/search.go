package pattern

// Search scans haystack for pattern p using a modified naive scan with a
// first-byte skip heuristic (spec.md §4.6). It returns the offsets of every
// match in ascending order; if firstOnly is true, it stops after the first
// match. Wildcards never participate in the skip heuristic: a wildcard at
// position > 0 is never considered a sighting of the pattern's first byte.
func Search(haystack []byte, p Pattern, firstOnly bool) []int {
	n := len(haystack)
	m := p.Len()
	if m == 0 || m > n {
		return nil
	}

	var matches []int
	i := 0
	for i+m <= n {
		inc := 0
		matched := true

		for j := 0; j < m; j++ {
			if !p.IsWildcard(j) {
				if j > 0 && inc == 0 && haystack[i+j] == p.Bytes[0] {
					inc = j
				}
				if haystack[i+j] != p.Bytes[j] {
					matched = false
					if inc == 0 {
						inc = j + 1
					}
					break
				}
			}
			if j == m-1 && inc == 0 {
				inc = j + 1
			}
		}

		if matched {
			matches = append(matches, i)
			if firstOnly {
				return matches
			}
		}

		if inc < 1 {
			inc = 1
		}
		i += inc
	}
	return matches
}

// SearchFirst returns the offset of the first match, or -1 if there is
// none.
func SearchFirst(haystack []byte, p Pattern) int {
	m := Search(haystack, p, true)
	if len(m) == 0 {
		return -1
	}
	return m[0]
}
