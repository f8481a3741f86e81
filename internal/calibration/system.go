// Package calibration learns per-zone and per-distance correction factors from
// observed movement outcomes and feeds them back into the coordinate mapper.
// Corrections converge slowly by design; a single bad sample can only nudge a
// factor by the learning rate.
package calibration

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/geom"
)

const (
	zoneWeight            = 0.6
	distanceWeight        = 0.4
	neighborMinConfidence = 0.5
	evictKeepFraction     = 0.8
)

// ZoneKey identifies one fixed-size screen tile.
type ZoneKey struct {
	X int
	Y int
}

// Factor is one learned per-axis correction with its bookkeeping.
type Factor struct {
	FX         float64
	FY         float64
	Confidence float64
	Samples    int
	Updated    time.Time
}

// DeviceDelta is the integer device-unit move a data point measured.
type DeviceDelta struct {
	DX int
	DY int
}

// DataPoint is one recorded movement outcome.
type DataPoint struct {
	Session    string
	Intended   geom.Vector2D
	Actual     geom.Vector2D
	Delta      DeviceDelta
	ErrorPx    float64
	Confidence float64
	Zone       ZoneKey
	Bucket     int
	Class      string
	Recorded   time.Time
}

// Meta carries the context of a recorded outcome.
type Meta struct {
	Class string
}

// System accumulates movement outcomes and serves combined corrections.
// The engine is the single writer; the mutex exists for the quality report
// and IsMovementActive-style host reads, which may come from another
// goroutine.
type System struct {
	log     *zap.Logger
	cfg     config.CalibrationConfig
	center  geom.Vector2D
	session string
	clock   func() time.Time
	store   *Store

	mu       sync.Mutex
	zones    map[ZoneKey]*Factor
	buckets  map[int]*Factor
	points   []DataPoint
	recorded int
}

// New builds a calibration system for the given snapshot. A non-nil store is
// loaded immediately; a missing or unreadable store means starting fresh,
// never a failure.
func New(cfg *config.Config, store *Store, logger *zap.Logger) *System {
	s := &System{
		log:     logger.Named("calibration"),
		cfg:     cfg.Calibration,
		center:  geom.Vector2D{X: float64(cfg.Screen.Width) / 2, Y: float64(cfg.Screen.Height) / 2},
		session: uuid.NewString(),
		clock:   time.Now,
		store:   store,
		zones:   make(map[ZoneKey]*Factor),
		buckets: make(map[int]*Factor),
	}
	if store != nil {
		snap, err := store.Load()
		if err != nil {
			s.log.Warn("calibration store unreadable, starting fresh", zap.Error(err))
		} else {
			s.adopt(snap)
		}
	}
	return s
}

func (s *System) adopt(snap Snapshot) {
	for k, f := range snap.Zones {
		cp := f
		s.zones[k] = &cp
	}
	for b, f := range snap.Buckets {
		cp := f
		s.buckets[b] = &cp
	}
	s.points = append(s.points, snap.Points...)
	s.log.Info("calibration state restored",
		zap.Int("points", len(snap.Points)),
		zap.Int("zones", len(snap.Zones)),
		zap.Int("buckets", len(snap.Buckets)))
}

// RecordResult folds one observed outcome into the learned tables. Intended
// and actual are absolute detection-window coordinates of where the pointer
// should have landed and where it did.
func (s *System) RecordResult(intended, actual geom.Vector2D, delta DeviceDelta, meta Meta) {
	now := s.clock()
	intOff := intended.Sub(s.center)
	actOff := actual.Sub(s.center)
	distance := intOff.Mag()

	errPx := actual.Dist(intended)
	relErr := errPx / math.Max(distance, 1.0)
	conf := confidenceFor(relErr)

	point := DataPoint{
		Session:    s.session,
		Intended:   intended,
		Actual:     actual,
		Delta:      delta,
		ErrorPx:    errPx,
		Confidence: conf,
		Zone:       s.zoneOf(intended),
		Bucket:     s.bucketOf(distance),
		Class:      meta.Class,
		Recorded:   now,
	}

	corrX, okX := axisCorrection(intOff.X, actOff.X)
	corrY, okY := axisCorrection(intOff.Y, actOff.Y)

	s.mu.Lock()
	s.updateFactor(s.zoneFactor(point.Zone), corrX, okX, corrY, okY, conf, now)
	s.updateFactor(s.bucketFactor(point.Bucket), corrX, okX, corrY, okY, conf, now)
	s.points = append(s.points, point)
	s.evictLocked()
	s.recorded++
	needSave := s.store != nil && s.cfg.AutosaveEvery > 0 && s.recorded%s.cfg.AutosaveEvery == 0
	var snap Snapshot
	if needSave {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.log.Debug("calibration point recorded",
		zap.Float64("error_px", errPx),
		zap.Float64("confidence", conf),
		zap.String("class", meta.Class))

	if needSave {
		if err := s.store.Save(snap); err != nil {
			s.log.Warn("calibration autosave failed", zap.Error(err))
		}
	}
}

// CombinedCorrection returns the per-axis factors the mapper multiplies in.
// Identity when nothing usable has been learned for the region.
func (s *System) CombinedCorrection(target geom.Vector2D, distance float64) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zfx, zfy := s.zoneCorrectionLocked(s.zoneOf(target))
	dfx, dfy := s.bucketCorrectionLocked(s.bucketOf(distance))

	return zoneWeight*zfx + distanceWeight*dfx, zoneWeight*zfy + distanceWeight*dfy
}

// Size reports the number of retained data points.
func (s *System) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// SaveNow forces a synchronous persist of the current state.
func (s *System) SaveNow() error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.store.Save(snap)
}

func (s *System) zoneOf(p geom.Vector2D) ZoneKey {
	size := float64(s.cfg.ZoneSize)
	return ZoneKey{X: int(math.Floor(p.X / size)), Y: int(math.Floor(p.Y / size))}
}

func (s *System) bucketOf(distance float64) int {
	return int(distance) / s.cfg.BucketSize
}

func (s *System) zoneFactor(k ZoneKey) *Factor {
	f, ok := s.zones[k]
	if !ok {
		f = &Factor{FX: 1.0, FY: 1.0}
		s.zones[k] = f
	}
	return f
}

func (s *System) bucketFactor(b int) *Factor {
	f, ok := s.buckets[b]
	if !ok {
		f = &Factor{FX: 1.0, FY: 1.0}
		s.buckets[b] = f
	}
	return f
}

// updateFactor applies exponentially smoothed per-axis corrections. Raw
// corrections and the smoothed result are both clamped to the configured band
// so adversarial outcomes cannot blow a factor up.
func (s *System) updateFactor(f *Factor, corrX float64, okX bool, corrY float64, okY bool, conf float64, now time.Time) {
	lr := s.cfg.LearningRate
	if okX {
		f.FX = s.clamp((1-lr)*f.FX + lr*s.clamp(corrX))
	}
	if okY {
		f.FY = s.clamp((1-lr)*f.FY + lr*s.clamp(corrY))
	}
	if f.Samples == 0 {
		f.Confidence = conf
	} else {
		f.Confidence = (1-lr)*f.Confidence + lr*conf
	}
	f.Samples++
	f.Updated = now
}

func (s *System) clamp(v float64) float64 {
	return math.Min(math.Max(v, s.cfg.MinFactor), s.cfg.MaxFactor)
}

func (s *System) usable(f *Factor) bool {
	return f != nil && f.Samples >= s.cfg.MinSamples && f.Confidence >= s.cfg.ConfidenceThreshold
}

func (s *System) zoneCorrectionLocked(k ZoneKey) (float64, float64) {
	if f := s.zones[k]; s.usable(f) {
		return f.FX, f.FY
	}
	// Fall back to the mean over qualifying neighbor tiles.
	var sumX, sumY float64
	var count int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := s.zones[ZoneKey{X: k.X + dx, Y: k.Y + dy}]
			if n == nil || n.Samples < s.cfg.MinSamples || n.Confidence < neighborMinConfidence {
				continue
			}
			sumX += n.FX
			sumY += n.FY
			count++
		}
	}
	if count > 0 {
		return sumX / float64(count), sumY / float64(count)
	}
	return 1.0, 1.0
}

func (s *System) bucketCorrectionLocked(b int) (float64, float64) {
	if f := s.buckets[b]; s.usable(f) {
		return f.FX, f.FY
	}
	var sumX, sumY float64
	var count int
	for _, nb := range []int{b - 1, b + 1} {
		n := s.buckets[nb]
		if n == nil || n.Samples < s.cfg.MinSamples || n.Confidence < neighborMinConfidence {
			continue
		}
		sumX += n.FX
		sumY += n.FY
		count++
	}
	if count > 0 {
		return sumX / float64(count), sumY / float64(count)
	}
	return 1.0, 1.0
}

// evictLocked keeps the retained history bounded, dropping the least
// trustworthy points first.
func (s *System) evictLocked() {
	if s.cfg.MaxDataPoints <= 0 || len(s.points) <= s.cfg.MaxDataPoints {
		return
	}
	sort.SliceStable(s.points, func(i, j int) bool {
		if s.points[i].Confidence != s.points[j].Confidence {
			return s.points[i].Confidence > s.points[j].Confidence
		}
		return s.points[i].Recorded.After(s.points[j].Recorded)
	})
	keep := int(float64(s.cfg.MaxDataPoints) * evictKeepFraction)
	if keep < 1 {
		keep = 1
	}
	dropped := len(s.points) - keep
	s.points = s.points[:keep]
	s.log.Debug("calibration history trimmed", zap.Int("dropped", dropped), zap.Int("kept", keep))
}

func (s *System) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session: s.session,
		SavedAt: s.clock(),
		Zones:   make(map[ZoneKey]Factor, len(s.zones)),
		Buckets: make(map[int]Factor, len(s.buckets)),
	}
	for k, f := range s.zones {
		snap.Zones[k] = *f
	}
	for b, f := range s.buckets {
		snap.Buckets[b] = *f
	}
	n := len(s.points)
	if s.cfg.PersistedPoints > 0 && n > s.cfg.PersistedPoints {
		n = s.cfg.PersistedPoints
	}
	snap.Points = append(snap.Points, s.points[len(s.points)-n:]...)
	return snap
}

// confidenceFor maps a relative landing error onto the trust placed in the
// resulting correction.
func confidenceFor(relErr float64) float64 {
	switch {
	case relErr < 0.01:
		return 1.0
	case relErr < 0.05:
		return 0.9
	case relErr < 0.10:
		return 0.7
	case relErr < 0.20:
		return 0.5
	default:
		return 0.2
	}
}

// axisCorrection derives the multiplicative fix for one axis from the
// center-relative intended and actual offsets. Offsets too close to the
// center carry no signal for that axis.
func axisCorrection(intended, actual float64) (float64, bool) {
	if math.Abs(actual) < 1.0 || math.Abs(intended) < 1.0 {
		return 1.0, false
	}
	return intended / actual, true
}
