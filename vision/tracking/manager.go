package tracking

import (
	"context"
	"image"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/klt/logging"
	"go.viam.com/klt/rimage"
	"go.viam.com/klt/utils"
	"go.viam.com/klt/vision/keypoints"
	"go.viam.com/klt/vision/klt"
)

// ErrNoImage is returned when tracks are created before any frame was processed.
var ErrNoImage = errors.New("no frame has been processed")

// worker owns the scratch state needed to track one feature at a time.
type worker[I, D rimage.Pixel] struct {
	curr    *klt.PyramidTracker[I, D]
	prev    *klt.PyramidTracker[I, D]
	scratch *klt.PyramidFeature
}

// Manager keeps a population of tracks between MinFeatures and MaxFeatures over a sequence of
// frames. It is not safe for concurrent use.
type Manager[I, D rimage.Pixel] struct {
	cfg      ManagerConfig
	detector keypoints.Detector[I, D]
	logger   logging.Logger

	tracker *klt.PyramidTracker[I, D]
	back    *klt.PyramidTracker[I, D]

	curr    klt.PyramidImages[I, D]
	prev    klt.PyramidImages[I, D]
	hasCurr bool
	hasPrev bool

	active  []*Track
	spawned []*Track
	dropped []*Track
	// storage of dropped tracks available for new ones
	unused []*Track

	nextID int64
}

// NewManager returns a manager spawning features found by detector.
func NewManager[I, D rimage.Pixel](cfg ManagerConfig, detector keypoints.Detector[I, D], logger logging.Logger) (*Manager[I, D], error) {
	if err := cfg.Validate("tracking"); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, errors.New("a feature detector is required")
	}
	tracker, err := klt.NewTracker[I, D](cfg.KLT)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global()
	}
	pt := klt.NewPyramidTracker(tracker)
	return &Manager[I, D]{
		cfg:      cfg,
		detector: detector,
		logger:   logger,
		tracker:  pt,
		back:     pt.Clone(),
	}, nil
}

// Config returns the manager configuration.
func (m *Manager[I, D]) Config() ManagerConfig {
	return m.cfg
}

// Process tracks every active feature into images, drops the ones that failed and spawns new
// ones when fewer than MinFeatures remain. The manager keeps a reference to images, which must
// not be modified afterwards. If ctx is cancelled between two features the tracks processed so
// far keep their result and images becomes the previous frame. The rest keep their position;
// on the next frame they are tracked without the backwards check and report no pair. Nothing
// is spawned and the context error is returned.
func (m *Manager[I, D]) Process(ctx context.Context, images klt.PyramidImages[I, D]) error {
	if err := m.tracker.SetImage(images); err != nil {
		return err
	}
	m.curr = images
	m.hasCurr = true
	m.spawned = m.spawned[:0]
	m.dropped = m.dropped[:0]
	checkFB := m.cfg.ToleranceFB >= 0 && m.hasPrev
	if checkFB {
		if err := m.back.SetImage(m.prev); err != nil {
			return err
		}
	}

	tracks := m.active
	ok := make([]bool, len(tracks))
	done := make([]bool, len(tracks))
	var err error
	if m.cfg.Parallel && len(tracks) > 1 {
		var workers []*worker[I, D]
		err = utils.GroupWorkParallel(
			ctx,
			len(tracks),
			func(numGroups int) {
				workers = make([]*worker[I, D], numGroups)
				for i := range workers {
					workers[i] = m.newWorker(m.tracker.Clone(), m.back.Clone())
				}
			},
			func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
				w := workers[groupNum]
				return func(memberNum, workNum int) {
					ok[workNum] = m.trackOne(w, tracks[workNum], checkFB)
					done[workNum] = true
				}, nil
			},
		)
	} else {
		w := m.newWorker(m.tracker, m.back)
		for i, tr := range tracks {
			if err = ctx.Err(); err != nil {
				break
			}
			ok[i] = m.trackOne(w, tr, checkFB)
			done[i] = true
		}
	}

	numTracked := 0
	m.active = make([]*Track, 0, len(tracks))
	for i, tr := range tracks {
		switch {
		case !done[i]:
			tr.Tracked = false
			tr.stale = true
			m.active = append(m.active, tr)
		case ok[i]:
			if tr.Tracked {
				numTracked++
			}
			m.active = append(m.active, tr)
		default:
			m.drop(tr)
		}
	}
	m.prev = images
	m.hasPrev = true
	if err != nil {
		return err
	}

	if len(m.active) < m.cfg.MinFeatures {
		if _, err := m.Spawn(); err != nil {
			return err
		}
	}

	m.logger.CDebugw(ctx, "processed frame",
		"tracked", numTracked,
		"dropped", len(m.dropped),
		"spawned", len(m.spawned),
		"active", len(m.active),
	)
	return nil
}

func (m *Manager[I, D]) newWorker(curr, prev *klt.PyramidTracker[I, D]) *worker[I, D] {
	return &worker[I, D]{
		curr:    curr,
		prev:    prev,
		scratch: klt.NewPyramidFeature(m.curr.NumLevels(), m.cfg.TemplateRadius),
	}
}

// trackOne tracks tr into the current frame and validates the result. It only touches tr, so
// distinct tracks can be processed concurrently by distinct workers.
func (m *Manager[I, D]) trackOne(w *worker[I, D], tr *Track, checkFB bool) bool {
	tr.Tracked = false
	stale := tr.stale
	tr.stale = false
	if w.curr.Track(tr.feature) != klt.Success {
		return false
	}
	x, y := tr.feature.X, tr.feature.Y
	// discard a track if its center drifts outside the image
	if !m.inBounds(x, y) {
		return false
	}
	if m.cfg.UpdateDescription && !w.curr.SetDescription(tr.feature) {
		return false
	}
	// the previous frame is not where a stale track comes from
	if checkFB && !stale && !m.validateBackwards(w, tr, x, y) {
		return false
	}
	tr.Prev = tr.Position
	tr.Position = r2.Point{X: x, Y: y}
	tr.Tracked = !stale
	return true
}

// validateBackwards tracks the feature from the current frame back into the previous one and
// checks that it returns to where it came from.
func (m *Manager[I, D]) validateBackwards(w *worker[I, D], tr *Track, x, y float64) bool {
	scratch := w.scratch
	if len(scratch.Levels) != len(tr.feature.Levels) {
		scratch = klt.NewPyramidFeature(len(tr.feature.Levels), m.cfg.TemplateRadius)
		w.scratch = scratch
	}
	scratch.SetPosition(x, y)
	if !w.curr.SetDescription(scratch) {
		return false
	}
	if w.prev.Track(scratch) != klt.Success {
		return false
	}
	dx := scratch.X - tr.Position.X
	dy := scratch.Y - tr.Position.Y
	return dx*dx+dy*dy <= utils.Square(m.cfg.ToleranceFB)
}

// inBounds tells whether a full resolution position is inside the finest level.
func (m *Manager[I, D]) inBounds(x, y float64) bool {
	scale := m.curr.Image.Scale(0)
	level := m.curr.Image.Level(0)
	return level.In(int(x/scale), int(y/scale)) && x >= 0 && y >= 0
}

func (m *Manager[I, D]) drop(tr *Track) {
	tr.Tracked = false
	m.dropped = append(m.dropped, tr)
	m.unused = append(m.unused, tr)
}

// takeUnused returns recycled track storage, or new storage when there is none that fits the
// current pyramid.
func (m *Manager[I, D]) takeUnused() *Track {
	numLevels := m.curr.NumLevels()
	for len(m.unused) > 0 {
		tr := m.unused[len(m.unused)-1]
		m.unused = m.unused[:len(m.unused)-1]
		if len(tr.feature.Levels) == numLevels {
			return tr
		}
	}
	return &Track{feature: klt.NewPyramidFeature(numLevels, m.cfg.TemplateRadius)}
}

// Spawn detects corners on the finest level of the current frame and starts tracks on them,
// away from the active tracks and up to MaxFeatures. It returns how many tracks were spawned.
func (m *Manager[I, D]) Spawn() (int, error) {
	if !m.hasCurr {
		return 0, ErrNoImage
	}
	m.spawned = m.spawned[:0]

	scale := m.curr.Image.Scale(0)
	exclude := lo.Map(m.active, func(tr *Track, _ int) image.Point {
		return image.Point{int(tr.Position.X / scale), int(tr.Position.Y / scale)}
	})
	corners := m.detector.Detect(m.curr.Image.Level(0), m.curr.DerivX[0], m.curr.DerivY[0], exclude)
	radiusSq := m.cfg.ExcludeRadius * m.cfg.ExcludeRadius
	corners = lo.Filter(corners, func(c keypoints.Corner, _ int) bool {
		return !lo.SomeBy(exclude, func(p image.Point) bool {
			dx, dy := p.X-c.X, p.Y-c.Y
			return dx*dx+dy*dy < radiusSq
		})
	})

	for _, pos := range keypoints.RescaleCorners(corners, scale) {
		if len(m.active) >= m.cfg.MaxFeatures {
			break
		}
		if tr, ok := m.start(pos.X, pos.Y); ok {
			m.spawned = append(m.spawned, tr)
		}
	}
	return len(m.spawned), nil
}

// start describes a new track at (x, y) and makes it active.
func (m *Manager[I, D]) start(x, y float64) (*Track, bool) {
	tr := m.takeUnused()
	tr.feature.SetPosition(x, y)
	if !m.tracker.SetDescription(tr.feature) {
		m.unused = append(m.unused, tr)
		return nil, false
	}
	tr.ID = m.nextID
	m.nextID++
	tr.Position = r2.Point{X: x, Y: y}
	tr.Prev = tr.Position
	tr.Tracked = false
	tr.stale = false
	tr.feature.ID = tr.ID
	m.active = append(m.active, tr)
	return tr, true
}

// AddTrack starts a track at the full resolution position (x, y) of the current frame. It
// returns false when the position is outside the frame or cannot be described.
func (m *Manager[I, D]) AddTrack(x, y float64) (Track, bool) {
	if !m.hasCurr || !m.inBounds(x, y) {
		return Track{}, false
	}
	tr, ok := m.start(x, y)
	if !ok {
		return Track{}, false
	}
	return *tr, true
}

// DropTrack stops the active track with the given id.
func (m *Manager[I, D]) DropTrack(id int64) bool {
	idx := slices.IndexFunc(m.active, func(tr *Track) bool { return tr.ID == id })
	if idx < 0 {
		return false
	}
	tr := m.active[idx]
	m.active = slices.Delete(m.active, idx, idx+1)
	tr.Tracked = false
	m.unused = append(m.unused, tr)
	return true
}

// DropAll stops every active track.
func (m *Manager[I, D]) DropAll() {
	for _, tr := range m.active {
		tr.Tracked = false
	}
	m.unused = append(m.unused, m.active...)
	m.active = nil
	m.dropped = m.dropped[:0]
	m.spawned = m.spawned[:0]
}

// Reset drops every track, forgets the previous frame and restarts ids from zero.
func (m *Manager[I, D]) Reset() {
	m.DropAll()
	m.nextID = 0
	m.hasPrev = false
	m.prev = klt.PyramidImages[I, D]{}
}

func copyTracks(tracks []*Track) []Track {
	return lo.Map(tracks, func(tr *Track, _ int) Track { return *tr })
}

// Active returns the tracks that are currently followed.
func (m *Manager[I, D]) Active() []Track {
	return copyTracks(m.active)
}

// Spawned returns the tracks spawned in the latest frame.
func (m *Manager[I, D]) Spawned() []Track {
	return copyTracks(m.spawned)
}

// Dropped returns the tracks dropped in the latest frame.
func (m *Manager[I, D]) Dropped() []Track {
	return copyTracks(m.dropped)
}

// Pairs returns the associations of the tracks that were tracked into the latest frame.
func (m *Manager[I, D]) Pairs() []AssociatedPair {
	return lo.FilterMap(m.active, func(tr *Track, _ int) (AssociatedPair, bool) {
		return tr.Pair(), tr.Tracked
	})
}

// TotalSpawned returns how many tracks were started since the last Reset.
func (m *Manager[I, D]) TotalSpawned() int64 {
	return m.nextID
}
