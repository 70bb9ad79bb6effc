package trace

import (
	"fmt"
	"math"
)

const secondsPerHour = 3600

// Derived holds the series computed from committed records and run
// parameters. Its slices share the index space of Records.
type Derived struct {
	// Hours since the first record's timestamp.
	Hours []float64
	// Epsilon is the target bound epsilon0 * mu^outer.
	Epsilon []float64
	// BrokenEpsilon is (1 + omega) * epsilon0 * mu^(outer-1).
	BrokenEpsilon []float64
	// Riits counts the inner iterations left until the end of the record's
	// outer block; the last record of every block has 0.
	Riits []int
}

// Derive computes the derived series. Bounds whose parameters are absent from
// the header are filled with NaN so every slice keeps the record length.
// With checkGrouping set, outer values must be non-decreasing.
func Derive(p RunParameters, r Records, checkGrouping bool) (Derived, error) {
	if checkGrouping {
		if err := CheckGrouping(r.Outer); err != nil {
			return Derived{}, err
		}
	}

	n := r.Len()
	d := Derived{
		Hours:         make([]float64, n),
		Epsilon:       make([]float64, n),
		BrokenEpsilon: make([]float64, n),
		Riits:         ReverseIterations(r.Outer, r.Inner),
	}

	for i := 0; i < n; i++ {
		d.Hours[i] = float64(r.Timestamps[i]-r.Timestamps[0]) / secondsPerHour
	}

	haveEpsilon := p.Require(LabelInitialError, LabelMu) == nil
	haveBroken := haveEpsilon && p.Has(LabelOmega)
	for i, outer := range r.Outer {
		d.Epsilon[i] = math.NaN()
		d.BrokenEpsilon[i] = math.NaN()
		if haveEpsilon {
			d.Epsilon[i] = p.InitialError * math.Pow(p.Mu, float64(outer))
		}
		if haveBroken {
			d.BrokenEpsilon[i] = (1 + p.Omega) * p.InitialError * math.Pow(p.Mu, float64(outer-1))
		}
	}
	return d, nil
}

// CheckGrouping verifies that outer iteration values never decrease, which is
// what makes every outer value occupy a single contiguous block.
func CheckGrouping(outer []int) error {
	for i := 1; i < len(outer); i++ {
		if outer[i] < outer[i-1] {
			return fmt.Errorf("%w: record %d has outer %d after %d", ErrInvalidGrouping, i, outer[i], outer[i-1])
		}
	}
	return nil
}

// ReverseIterations returns, for every record, the largest inner value of its
// contiguous outer block minus its own inner value.
func ReverseIterations(outer, inner []int) []int {
	riits := make([]int, len(outer))
	for _, b := range blocks(outer) {
		last := inner[b.Start]
		for i := b.Start; i < b.End; i++ {
			last = max(last, inner[i])
		}
		for i := b.Start; i < b.End; i++ {
			riits[i] = last - inner[i]
		}
	}
	return riits
}

// Block is a maximal run [Start, End) of records sharing one outer value.
type Block struct {
	Outer int
	Start int
	End   int
}

func blocks(outer []int) []Block {
	var out []Block
	for i := 0; i < len(outer); {
		j := i + 1
		for j < len(outer) && outer[j] == outer[i] {
			j++
		}
		out = append(out, Block{Outer: outer[i], Start: i, End: j})
		i = j
	}
	return out
}
