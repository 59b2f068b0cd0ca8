// Package aggregate implements the numeric/string aggregate functions
// that run over a column's materialized value list.
package aggregate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"coredb/pkg/types"
)

// numeric best-effort-parses every value, silently skipping entries
// that don't coerce — the shared convention for every numeric
// aggregate.
func numeric(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := types.ParseNumeric(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Sum returns the sum of parseable values; 0 for an empty set.
func Sum(values []string) float64 {
	var sum float64
	for _, f := range numeric(values) {
		sum += f
	}
	return sum
}

// Mean returns the average of parseable values; 0 for an empty set.
func Mean(values []string) float64 {
	nums := numeric(values)
	if len(nums) == 0 {
		return 0
	}
	var sum float64
	for _, f := range nums {
		sum += f
	}
	return sum / float64(len(nums))
}

// Min returns the smallest parseable value. ±∞ (no parseable values)
// collapses to 0 by output-formatting convention.
func Min(values []string) float64 {
	min := math.Inf(1)
	for _, f := range numeric(values) {
		if f < min {
			min = f
		}
	}
	return collapseInf(min)
}

// Max returns the largest parseable value, with the same ±∞
// collapsing convention as Min.
func Max(values []string) float64 {
	max := math.Inf(-1)
	for _, f := range numeric(values) {
		if f > max {
			max = f
		}
	}
	return collapseInf(max)
}

func collapseInf(f float64) float64 {
	if math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Count returns the number of non-empty inputs, or every input when
// countAll is true (COUNT(*) semantics).
func Count(values []string, countAll bool) int {
	if countAll {
		return len(values)
	}
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// Median returns the lower-mid value for an odd-sized parseable set,
// or the mean of the two middle values for an even-sized set,
// formatted as a string. Empty input returns "0".
func Median(values []string) string {
	nums := numeric(values)
	if len(nums) == 0 {
		return "0"
	}
	sort.Float64s(nums)
	n := len(nums)
	var median float64
	if n%2 == 0 {
		median = (nums[n/2-1] + nums[n/2]) / 2
	} else {
		median = nums[n/2]
	}
	return formatFloat(median)
}

// Mode returns the most-frequent value by exact string match, ties
// broken by insertion order (of the values sharing the winning count,
// the one that first appears in the input wins).
func Mode(values []string) string {
	freq := make(map[string]int)
	order := make([]string, 0, len(values))
	for _, v := range values {
		if _, seen := freq[v]; !seen {
			order = append(order, v)
		}
		freq[v]++
	}
	best := ""
	bestCount := 0
	for _, v := range order {
		if freq[v] > bestCount {
			bestCount = freq[v]
			best = v
		}
	}
	return best
}

// Variance returns the population variance when sample is false, or
// the sample (n-1 denominator) variance when true. Fewer than two
// data points (for sample) or zero (for population) yields 0.
func Variance(values []string, sample bool) float64 {
	nums := numeric(values)
	n := len(nums)
	if n == 0 {
		return 0
	}
	if sample && n < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, f := range nums {
		d := f - mean
		sumSq += d * d
	}
	denom := float64(n)
	if sample {
		denom = float64(n - 1)
	}
	return sumSq / denom
}

// StdDev returns the square root of Variance.
func StdDev(values []string, sample bool) float64 {
	return math.Sqrt(Variance(values, sample))
}

// StringConcat joins every input value with sep, in input order.
func StringConcat(values []string, sep string) string {
	return strings.Join(values, sep)
}

// Percentile returns the linear-interpolated p-th percentile
// (0 <= p <= 100) over the sorted parseable values.
func Percentile(values []string, p float64) float64 {
	nums := numeric(values)
	if len(nums) == 0 {
		return 0
	}
	sort.Float64s(nums)
	if len(nums) == 1 {
		return nums[0]
	}
	rank := (p / 100) * float64(len(nums)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(nums) {
		hi = len(nums) - 1
	}
	if lo == hi {
		return nums[lo]
	}
	frac := rank - float64(lo)
	return nums[lo] + frac*(nums[hi]-nums[lo])
}

// formatFloat renders a float the way the original aggregation code
// does via ostringstream: integral values print without a trailing
// ".0", fractional values print their natural decimal form.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
