package mapper

import "gonum.org/v1/gonum/stat"

// ring is a bounded history of recent mappings, kept for the stats the
// calibrate command reports. Not safe for concurrent use; the mapper shares
// the engine's single-writer assumption.
type ring struct {
	distances []float64
	factorsX  []float64
	factorsY  []float64
	next      int
	full      bool
	total     uint64
}

func newRing(capacity int) ring {
	return ring{
		distances: make([]float64, capacity),
		factorsX:  make([]float64, capacity),
		factorsY:  make([]float64, capacity),
	}
}

func (r *ring) record(distance, fx, fy float64) {
	r.distances[r.next] = distance
	r.factorsX[r.next] = fx
	r.factorsY[r.next] = fy
	r.next++
	r.total++
	if r.next == len(r.distances) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) size() int {
	if r.full {
		return len(r.distances)
	}
	return r.next
}

// Stats summarizes recent mapping activity.
type Stats struct {
	TotalMappings   uint64
	RecentSamples   int
	MeanDistance    float64
	MeanUnitsPerPxX float64
	MeanUnitsPerPxY float64
}

// Stats returns aggregate statistics over the retained mapping history.
func (m *Mapper) Stats() Stats {
	n := m.history.size()
	s := Stats{TotalMappings: m.history.total, RecentSamples: n}
	if n == 0 {
		return s
	}
	s.MeanDistance = stat.Mean(m.history.distances[:n], nil)
	s.MeanUnitsPerPxX = stat.Mean(m.history.factorsX[:n], nil)
	s.MeanUnitsPerPxY = stat.Mean(m.history.factorsY[:n], nil)
	return s
}
