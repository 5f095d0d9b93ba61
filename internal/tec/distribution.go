package tec

// BreakdownEntry is the capacity of one secondary-dimension value within a
// distribution slice.
type BreakdownEntry struct {
	Label    string  `json:"label"`
	Capacity float64 `json:"connection_cap_mw"`
}

// DistributionSlice is one primary-dimension value with its total and the
// breakdown over every observed value of the secondary dimension, zeros
// included.
type DistributionSlice struct {
	Label     string           `json:"label"`
	Total     float64          `json:"total_mw"`
	Breakdown []BreakdownEntry `json:"breakdown"`
}

// NonZero returns the breakdown entries with positive capacity, the form
// shown in chart tooltips.
func (s DistributionSlice) NonZero() []BreakdownEntry {
	out := make([]BreakdownEntry, 0, len(s.Breakdown))
	for _, b := range s.Breakdown {
		if b.Capacity > 0 {
			out = append(out, b)
		}
	}
	return out
}

// Distribution pairs the by-status and by-owner capacity splits.
type Distribution struct {
	ByStatus []DistributionSlice `json:"by_status"`
	ByOwner  []DistributionSlice `json:"by_owner"`
}

// CapacityDistribution computes capacity by project status (broken down by
// owner) and by owner (broken down by project status).
func CapacityDistribution(ds *Dataset) Distribution {
	return Distribution{
		ByStatus: distribute(ds, DimStatus, DimOwner),
		ByOwner:  distribute(ds, DimOwner, DimStatus),
	}
}

// Total sums the slice totals of one dimension; both dimensions carry the
// same total.
func Total(slices []DistributionSlice) float64 {
	var total float64
	for _, s := range slices {
		total += s.Total
	}
	return total
}

func distribute(ds *Dataset, primary, secondary Dimension) []DistributionSlice {
	primaries := ds.Distinct(primary)
	secondaries := ds.Distinct(secondary)

	sums := make(map[pairKey]float64)
	totals := make(map[string]float64)
	if ds != nil {
		for _, r := range ds.Records {
			p, s := primary.Value(r), secondary.Value(r)
			sums[pairKey{p, s}] += r.ConnectionCap
			totals[p] += r.ConnectionCap
		}
	}

	out := make([]DistributionSlice, 0, len(primaries))
	for _, p := range primaries {
		slice := DistributionSlice{
			Label:     p,
			Total:     totals[p],
			Breakdown: make([]BreakdownEntry, 0, len(secondaries)),
		}
		for _, s := range secondaries {
			slice.Breakdown = append(slice.Breakdown, BreakdownEntry{Label: s, Capacity: sums[pairKey{p, s}]})
		}
		out = append(out, slice)
	}
	return out
}
