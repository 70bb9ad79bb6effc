package analysis

import "github.com/Batmanabcdefg/hp-afem/internal/trace"

// Phase splits one outer iteration's wall time, in hours since the first
// record, into the near-best part before its first reduce step and the
// reduce part after it.
type Phase struct {
	Outer int `json:"outer"`
	// Begin is the end of the previous outer iteration.
	Begin float64 `json:"begin"`
	// Reduce is the time of the block's inner == 0 record.
	Reduce float64 `json:"reduce"`
	End    float64 `json:"end"`
	// NearBestFraction is (Reduce - Begin) / (End - Begin), 0 for an empty
	// interval.
	NearBestFraction float64 `json:"near_best_fraction"`
}

// Partition is the time split of a whole run.
type Partition struct {
	Phases      []Phase `json:"phases"`
	ReduceHours float64 `json:"reduce_hours"`
	TotalHours  float64 `json:"total_hours"`
}

// TimePartition splits the run's wall time per outer iteration. A block
// without an inner == 0 record reduces from its first record.
func TimePartition(t *trace.RunTrace) Partition {
	var p Partition
	prevEnd := 0.0
	for _, b := range t.Blocks() {
		reduce := t.Hours[b.Start]
		for n := b.Start; n < b.End; n++ {
			if t.Inner[n] == 0 {
				reduce = t.Hours[n]
				break
			}
		}
		end := t.Hours[b.End-1]

		ph := Phase{Outer: b.Outer, Begin: prevEnd, Reduce: reduce, End: end}
		if end != prevEnd {
			ph.NearBestFraction = (reduce - prevEnd) / (end - prevEnd)
		}
		p.Phases = append(p.Phases, ph)
		p.ReduceHours += end - reduce
		prevEnd = end
	}
	for _, h := range t.Hours {
		p.TotalHours = max(p.TotalHours, h)
	}
	return p
}
