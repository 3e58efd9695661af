package calcforge

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// StatFunc is the closed set of statistical aggregates. Dispatch is on
// this enum, never on raw strings.
type StatFunc int

const (
	StatSum StatFunc = iota
	StatMean
	StatMedian
	StatMode
	StatMin
	StatMax
	StatCount
	StatProduct
	StatVariance
	StatStdev
	StatRange
	StatGeoMean
	StatHarMean
	StatSumSq
	StatP5
	StatP95
	StatMeanFPS
)

// statFuncNames maps worksheet function names onto the enum. Names not
// in this table fall through to generic arithmetic, so math functions
// like sqrt() never collide with the statistics path.
var statFuncNames = map[string]StatFunc{
	"sum":      StatSum,
	"mean":     StatMean,
	"avg":      StatMean,
	"average":  StatMean,
	"median":   StatMedian,
	"mode":     StatMode,
	"min":      StatMin,
	"max":      StatMax,
	"count":    StatCount,
	"product":  StatProduct,
	"variance": StatVariance,
	"var":      StatVariance,
	"stdev":    StatStdev,
	"stddev":   StatStdev,
	"range":    StatRange,
	"geomean":  StatGeoMean,
	"harmean":  StatHarMean,
	"sumsq":    StatSumSq,
	"p5":       StatP5,
	"p95":      StatP95,
	"meanfps":  StatMeanFPS,
}

// RangeKind is the closed set of range-specifier shapes.
type RangeKind int

const (
	// RangeAbove covers every line above the current one.
	RangeAbove RangeKind = iota
	// RangeBelow covers every line below the current one.
	RangeBelow
	// RangeSpan is an inclusive 1-based line range "a-b".
	RangeSpan
	// RangeList is an explicit comma list of 1-based line ids.
	RangeList
	// RangeGroupAbove covers lines up to the nearest comment line above.
	RangeGroupAbove
	// RangeGroupBelow covers lines down to the nearest comment line below.
	RangeGroupBelow
)

// RangeSpec is a parsed statistical range argument.
type RangeSpec struct {
	Kind  RangeKind
	Start int // RangeSpan
	End   int
	IDs   []int // RangeList
}

var spanPattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// ParseRangeSpec parses a range argument: above, below, cg-above,
// cg-below, "a-b", or a comma list of line ids.
func ParseRangeSpec(arg string) (RangeSpec, error) {
	trimmed := strings.TrimSpace(arg)
	switch strings.ToLower(trimmed) {
	case "above":
		return RangeSpec{Kind: RangeAbove}, nil
	case "below":
		return RangeSpec{Kind: RangeBelow}, nil
	case "cg-above":
		return RangeSpec{Kind: RangeGroupAbove}, nil
	case "cg-below":
		return RangeSpec{Kind: RangeGroupBelow}, nil
	}

	if m := spanPattern.FindStringSubmatch(trimmed); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if start < 1 || end < start {
			return RangeSpec{}, fmt.Errorf("invalid line range %q", trimmed)
		}
		return RangeSpec{Kind: RangeSpan, Start: start, End: end}, nil
	}

	if strings.Contains(trimmed, ",") {
		parts := strings.Split(trimmed, ",")
		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || id < 1 {
				return RangeSpec{}, fmt.Errorf("invalid line id %q in range", strings.TrimSpace(p))
			}
			ids = append(ids, id)
		}
		return RangeSpec{Kind: RangeList, IDs: ids}, nil
	}

	if id, err := strconv.Atoi(trimmed); err == nil && id >= 1 {
		return RangeSpec{Kind: RangeList, IDs: []int{id}}, nil
	}

	return RangeSpec{}, fmt.Errorf("unrecognized range specifier %q", trimmed)
}

// lineIndexes maps a spec to 0-based line indexes for a sheet with n
// lines, current being the 0-based index of the calling line.
// isComment reports comment-marker lines, which bound cg- groups.
func (r RangeSpec) lineIndexes(current, n int, isComment func(int) bool) []int {
	var out []int
	switch r.Kind {
	case RangeAbove:
		for i := 0; i < current; i++ {
			out = append(out, i)
		}
	case RangeBelow:
		for i := current + 1; i < n; i++ {
			out = append(out, i)
		}
	case RangeGroupAbove:
		start := 0
		for i := current - 1; i >= 0; i-- {
			if isComment(i) {
				start = i + 1
				break
			}
		}
		for i := start; i < current; i++ {
			out = append(out, i)
		}
	case RangeGroupBelow:
		end := n
		for i := current + 1; i < n; i++ {
			if isComment(i) {
				end = i
				break
			}
		}
		for i := current + 1; i < end; i++ {
			out = append(out, i)
		}
	case RangeSpan:
		for id := r.Start; id <= r.End; id++ {
			if idx := id - 1; idx >= 0 && idx < n {
				out = append(out, idx)
			}
		}
	case RangeList:
		for _, id := range r.IDs {
			if idx := id - 1; idx >= 0 && idx < n {
				out = append(out, idx)
			}
		}
	}
	return out
}

// aggregate applies a numeric statistical function. Inputs are the
// successfully evaluated numeric lines of the range; the caller has
// already excluded failed and non-numeric lines.
func aggregate(fn StatFunc, nums []float64) (Value, error) {
	if fn == StatCount {
		return NumberValue(float64(len(nums))), nil
	}
	if len(nums) == 0 {
		return Value{}, fmt.Errorf("no numeric values in range")
	}

	switch fn {
	case StatSum:
		return NumberValue(sum(nums)), nil
	case StatMean:
		return NumberValue(sum(nums) / float64(len(nums))), nil
	case StatMedian:
		return NumberValue(median(nums)), nil
	case StatMode:
		if m, ok := mode(nums); ok {
			return NumberValue(m), nil
		}
		return Value{}, nil // no unique mode
	case StatMin:
		return NumberValue(minOf(nums)), nil
	case StatMax:
		return NumberValue(maxOf(nums)), nil
	case StatProduct:
		p := 1.0
		for _, v := range nums {
			p *= v
		}
		return NumberValue(p), nil
	case StatVariance:
		return NumberValue(populationVariance(nums)), nil
	case StatStdev:
		return NumberValue(math.Sqrt(populationVariance(nums))), nil
	case StatRange:
		return NumberValue(maxOf(nums) - minOf(nums)), nil
	case StatGeoMean:
		logSum := 0.0
		for _, v := range nums {
			if v <= 0 {
				return Value{}, fmt.Errorf("geomean requires positive values")
			}
			logSum += math.Log(v)
		}
		return NumberValue(math.Exp(logSum / float64(len(nums)))), nil
	case StatHarMean:
		recip := 0.0
		for _, v := range nums {
			if v == 0 {
				return Value{}, fmt.Errorf("harmean undefined for zero values")
			}
			recip += 1 / v
		}
		return NumberValue(float64(len(nums)) / recip), nil
	case StatSumSq:
		sq := 0.0
		for _, v := range nums {
			sq += v * v
		}
		return NumberValue(sq), nil
	case StatP5:
		return NumberValue(quantile(nums, 1)), nil
	case StatP95:
		return NumberValue(quantile(nums, 19)), nil
	}
	return Value{}, fmt.Errorf("unsupported statistical function")
}

func sum(nums []float64) float64 {
	s := 0.0
	for _, v := range nums {
		s += v
	}
	return s
}

func minOf(nums []float64) float64 {
	m := nums[0]
	for _, v := range nums[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(nums []float64) float64 {
	m := nums[0]
	for _, v := range nums[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func median(nums []float64) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent value; ok is false when no single
// value is strictly most frequent.
func mode(nums []float64) (float64, bool) {
	counts := make(map[float64]int, len(nums))
	for _, v := range nums {
		counts[v]++
	}
	best, bestCount, unique := 0.0, 0, false
	for v, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, unique = v, c, true
		case c == bestCount:
			unique = false
		}
	}
	if !unique || bestCount < 2 {
		return 0, false
	}
	return best, true
}

// populationVariance is the population (not sample) variance; it is
// defined as 0 for fewer than two values.
func populationVariance(nums []float64) float64 {
	if len(nums) < 2 {
		return 0
	}
	m := sum(nums) / float64(len(nums))
	acc := 0.0
	for _, v := range nums {
		d := v - m
		acc += d * d
	}
	return acc / float64(len(nums))
}

// quantile computes the q-th of 20 quantiles (q=1 → 5th percentile,
// q=19 → 95th) with linear interpolation between ranks.
func quantile(nums []float64, q int) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := float64(q) * float64(len(sorted)-1) / 20.0
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
