package summary

import (
	"slices"
)

// Stats describes the client-side latency of a case across its trials.
type Stats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg_ms"`
	Low   int64   `json:"low_ms"`
	High  int64   `json:"high_ms"`
	P50   int64   `json:"p50_ms"`
	P95   int64   `json:"p95_ms"`
}

// CalculateStats computes statistics from millisecond latencies. The input is
// left untouched.
func CalculateStats(latencies []int64) *Stats {
	if len(latencies) == 0 {
		return &Stats{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var total int64
	for _, l := range sorted {
		total += l
	}

	return &Stats{
		Count: len(sorted),
		Avg:   float64(total) / float64(len(sorted)),
		Low:   sorted[0],
		High:  sorted[len(sorted)-1],
		P50:   Percentile(sorted, 50),
		P95:   Percentile(sorted, 95),
	}
}

// Percentile returns the p-th percentile of an ascending slice.
func Percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := min((p*len(sorted))/100, len(sorted)-1)
	return sorted[idx]
}
