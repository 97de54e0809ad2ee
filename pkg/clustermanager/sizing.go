package clustermanager

import "sort"

// SizeSelector picks instance sizes out of the provider catalog
type SizeSelector struct {
	catalog []SizeOption
}

// NewSizeSelector creates a selector over a catalog snapshot
func NewSizeSelector(catalog []SizeOption) *SizeSelector {
	return &SizeSelector{catalog: append([]SizeOption(nil), catalog...)}
}

// Satisfies reports whether size meets all four constraints
func Satisfies(size SizeOption, c Constraints) bool {
	return size.VCPUs >= c.MinCores &&
		size.MemoryMB >= c.MinRAM &&
		size.DiskGB >= c.MinDisk &&
		size.MonthlyCost <= c.MaxMonthlyCost
}

// BestMatch returns the cheapest size satisfying c. Ties keep catalog order.
func (s *SizeSelector) BestMatch(c Constraints) (SizeOption, bool) {
	var matching []SizeOption
	for _, size := range s.catalog {
		if Satisfies(size, c) {
			matching = append(matching, size)
		}
	}

	if len(matching) == 0 {
		return SizeOption{}, false
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].MonthlyCost < matching[j].MonthlyCost
	})
	return matching[0], true
}

// BySlug looks up a size in the catalog
func (s *SizeSelector) BySlug(slug string) (SizeOption, bool) {
	for _, size := range s.catalog {
		if size.Slug == slug {
			return size, true
		}
	}
	return SizeOption{}, false
}
