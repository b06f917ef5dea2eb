package trymerge

// Pair is two adjacent regions that could be merged.
type Pair [2]*Region

// Compare returns every pair of adjacent regions that catch the same type and
// raise the same known exception. A chain of n such regions yields n-1 pairs.
func Compare(regions []*Region) []Pair {
	var pairs []Pair
	for i := 1; i < len(regions); i++ {
		prev, r := regions[i-1], regions[i]
		if !prev.Thrown.Matches(r.Thrown) {
			continue
		}
		if prev.CatchType() != r.CatchType() {
			continue
		}
		pairs = append(pairs, Pair{prev, r})
	}
	return pairs
}
