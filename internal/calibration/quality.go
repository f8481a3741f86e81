package calibration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ZoneQuality is the per-tile detail line of a quality report.
type ZoneQuality struct {
	Zone       ZoneKey
	Confidence float64
	Samples    int
}

// Report summarizes how trustworthy the learned calibration currently is.
type Report struct {
	Samples        int
	ZonesSeen      int
	ZonesUsable    int
	BucketsSeen    int
	BucketsUsable  int
	Coverage       float64
	MeanConfidence float64
	MeanErrorPx    float64
	ErrorStdDev    float64
	Quality        float64
	Zones          []ZoneQuality
}

// Quality computes the current calibration quality report. Safe to call from
// a goroutine other than the engine's.
func (s *System) Quality() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Report{
		Samples:     len(s.points),
		ZonesSeen:   len(s.zones),
		BucketsSeen: len(s.buckets),
	}
	if r.Samples == 0 {
		return r
	}

	errs := make([]float64, 0, len(s.points))
	confs := make([]float64, 0, len(s.points))
	for _, p := range s.points {
		errs = append(errs, p.ErrorPx)
		confs = append(confs, p.Confidence)
	}
	r.MeanErrorPx = stat.Mean(errs, nil)
	r.MeanConfidence = stat.Mean(confs, nil)
	if len(errs) > 1 {
		r.ErrorStdDev = stat.StdDev(errs, nil)
	}

	for k, f := range s.zones {
		if s.usable(f) {
			r.ZonesUsable++
		}
		r.Zones = append(r.Zones, ZoneQuality{Zone: k, Confidence: f.Confidence, Samples: f.Samples})
	}
	for _, f := range s.buckets {
		if s.usable(f) {
			r.BucketsUsable++
		}
	}
	sort.Slice(r.Zones, func(i, j int) bool {
		if r.Zones[i].Zone.X != r.Zones[j].Zone.X {
			return r.Zones[i].Zone.X < r.Zones[j].Zone.X
		}
		return r.Zones[i].Zone.Y < r.Zones[j].Zone.Y
	})

	if r.ZonesSeen > 0 {
		r.Coverage = float64(r.ZonesUsable) / float64(r.ZonesSeen)
	}

	// Overall quality discounts mean confidence until enough samples have
	// accumulated to trust it.
	needed := float64(s.cfg.MinSamples * 10)
	if needed < 1 {
		needed = 1
	}
	r.Quality = r.MeanConfidence * math.Min(1.0, float64(r.Samples)/needed)
	return r
}
