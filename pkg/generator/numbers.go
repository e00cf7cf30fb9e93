package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

const (
	defaultNumSpread = 1000
	// maxSafeInt keeps integer bounds exactly representable as float64.
	maxSafeInt = 1 << 53
)

// integerBounds returns the inclusive integer range allowed by n. exact is
// false when a minimum above 2^53 or a maximum below -2^53 had to be clamped,
// which leaves the range outside the declared bounds.
func integerBounds(n *schema.Node) (lo, hi int64, exact bool) {
	lo, hi, exact = math.MinInt64, math.MaxInt64, true
	if n.Minimum != nil {
		m := math.Ceil(*n.Minimum)
		if n.ExclusiveMinimum && m == *n.Minimum {
			m++
		}
		lo = clampFloat(m)
		exact = m <= maxSafeInt
	}
	if n.Maximum != nil {
		m := math.Floor(*n.Maximum)
		if n.ExclusiveMaximum && m == *n.Maximum {
			m--
		}
		hi = clampFloat(m)
		exact = exact && m >= -maxSafeInt
	}
	if n.Format == "int32" {
		lo = max(lo, math.MinInt32)
		hi = min(hi, math.MaxInt32)
	}
	switch {
	case n.Minimum == nil && n.Maximum == nil:
		lo, hi = max(lo, 0), min(hi, defaultNumSpread)
	case n.Minimum == nil:
		lo = max(lo, hi-defaultNumSpread)
	case n.Maximum == nil:
		hi = min(hi, lo+defaultNumSpread)
	}
	return lo, hi, exact
}

func clampFloat(f float64) int64 {
	return int64(math.Max(-maxSafeInt, math.Min(maxSafeInt, f)))
}

func (st *state) genInteger(n *schema.Node, f frame, r *rand.Rand) any {
	lo, hi, exact := integerBounds(n)
	if !exact {
		st.degrade(KindUnsupportedConstraint, n, f,
			fmt.Sprintf("integer bounds beyond ±2^53 cannot be met exactly, using [%d, %d]", lo, hi))
	}
	if lo > hi {
		st.degrade(KindUnsupportedConstraint, n, f, fmt.Sprintf("empty integer range [%d, %d]", lo, hi))
		return lo
	}

	if n.MultipleOf != nil {
		step, ok := integerStep(*n.MultipleOf)
		if !ok {
			st.degrade(KindUnsupportedConstraint, n, f, fmt.Sprintf("no integer is a multiple of %v", *n.MultipleOf))
			return lo
		}
		kLo := ceilDiv(lo, step)
		kHi := floorDiv(hi, step)
		if kLo > kHi {
			st.degrade(KindUnsupportedConstraint, n, f,
				fmt.Sprintf("no multiple of %v in [%d, %d]", *n.MultipleOf, lo, hi))
			return lo
		}
		return (kLo + r.Int64N(kHi-kLo+1)) * step
	}
	return lo + r.Int64N(hi-lo+1)
}

// integerStep is the smallest positive integer that is a multiple of m.
func integerStep(m float64) (int64, bool) {
	if m <= 0 {
		return 1, true
	}
	for k := 1.0; k <= 1000; k++ {
		if p := m * k; isWhole(p) {
			return int64(math.Round(p)), true
		}
	}
	return 0, false
}

func isWhole(f float64) bool {
	return math.Abs(f-math.Round(f)) < 1e-9
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func (st *state) genNumber(n *schema.Node, f frame, r *rand.Rand) any {
	lo, hi := -math.MaxFloat64, math.MaxFloat64
	if n.Minimum != nil {
		lo = *n.Minimum
	}
	if n.Maximum != nil {
		hi = *n.Maximum
	}
	switch {
	case n.Minimum == nil && n.Maximum == nil:
		lo, hi = 0, defaultNumSpread
	case n.Minimum == nil:
		lo = hi - defaultNumSpread
	case n.Maximum == nil:
		hi = lo + defaultNumSpread
	}
	inRange := func(v float64) bool {
		if v < lo || v > hi {
			return false
		}
		if n.Minimum != nil && n.ExclusiveMinimum && v == lo {
			return false
		}
		if n.Maximum != nil && n.ExclusiveMaximum && v == hi {
			return false
		}
		return true
	}

	if n.MultipleOf != nil && *n.MultipleOf > 0 {
		m := *n.MultipleOf
		places := decimalPlaces(m)
		kLo, kHi := math.Ceil(lo/m), math.Floor(hi/m)
		if !inRange(roundTo(kLo*m, places)) {
			kLo++
		}
		if !inRange(roundTo(kHi*m, places)) {
			kHi--
		}
		if kLo > kHi || kHi-kLo > maxSafeInt {
			st.degrade(KindUnsupportedConstraint, n, f, fmt.Sprintf("no multiple of %v in [%v, %v]", m, lo, hi))
			return lo
		}
		k := kLo + float64(r.Int64N(int64(kHi-kLo)+1))
		return roundTo(k*m, places)
	}

	v := lo + r.Float64()*(hi-lo)
	for _, c := range []float64{roundTo(v, 2), v, lo + (hi-lo)/2} {
		if inRange(c) {
			return c
		}
	}
	st.degrade(KindUnsupportedConstraint, n, f, fmt.Sprintf("empty number range (%v, %v)", lo, hi))
	return v
}

// decimalPlaces counts the fractional digits in the shortest decimal form
// of m, so k*m can be rounded back to an exact decimal.
func decimalPlaces(m float64) int {
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return min(len(s)-i-1, 12)
	}
	return 0
}

func roundTo(v float64, places int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}
