package scenario

// Stats summarizes a working set.
type Stats struct {
	Total      int
	Curated    int
	ByCategory map[Category]int
}

// ComputeStats counts entries per category. Raw entries with a category
// outside the closed set are counted under their literal label.
func ComputeStats(entries []Entry) Stats {
	s := Stats{ByCategory: make(map[Category]int)}
	for _, e := range entries {
		s.Total++
		if e.IsCurated() {
			s.Curated++
		}
		s.ByCategory[e.PromotionFields().Category]++
	}
	return s
}
