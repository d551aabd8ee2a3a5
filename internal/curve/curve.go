// Package curve resolves an item's derived level ("ilvl") from the set of
// bonus ids attached to an auction item plus the player level that rolled
// it, against a static table of known bonus effects.
package curve

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInvalidCurve is returned when a curve bonus has no usable points.
var ErrInvalidCurve = errors.New("curve: invalid points")

// DefaultPlayerLevel is used when an item carries no player-level modifier.
const DefaultPlayerLevel int32 = 1

// Point is one (player level, item level) sample of a piecewise-linear
// curve, points must be supplied in ascending PLvl order.
type Point struct {
	PLvl int32
	ILvl int32
}

// BonusInfo describes how a single bonus id affects derived item level.
// At most one of Level, BaseLevel, CurveID is set per TSM's own table
// shape: a bonus is either a flat relative delta, a base-level override,
// or a reference into a player-level curve.
type BonusInfo struct {
	Level     *int32
	BaseLevel *int32
	CurveID   *int32
	Points    []Point
}

func i32(v int32) *int32 { return &v }

// MapBonuses is the static bonus table. This is a representative slice of
// the real game data table (illustrative ids), not an exhaustive dump;
// callers extend it at init time if they have the full table available.
var MapBonuses = map[int32]BonusInfo{
	7:    {CurveID: i32(1), Points: []Point{{PLvl: 1, ILvl: 10}, {PLvl: 60, ILvl: 100}}},
	1472: {Level: i32(5)},
	1473: {Level: i32(10)},
	1474: {Level: i32(15)},
	42:   {BaseLevel: i32(372)},
	43:   {BaseLevel: i32(385)},
	1514: {CurveID: i32(2), Points: []Point{{PLvl: 1, ILvl: 200}, {PLvl: 50, ILvl: 226}, {PLvl: 60, ILvl: 246}}},
}

type curveKey struct {
	bonusID int32
	plvl    int32
}

const memoCap = 500_000

var (
	memo     atomic.Pointer[sync.Map]
	memoSize atomic.Int64
)

func init() {
	memo.Store(&sync.Map{})
}

func memoGet(k curveKey) (int32, bool) {
	v, ok := memo.Load().Load(k)
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

func memoPut(k curveKey, v int32) {
	if memoSize.Add(1) > memoCap {
		memo.Store(&sync.Map{})
		memoSize.Store(0)
	}
	memo.Load().Store(k, v)
}

// Result is the outcome of resolving a bonus set to a derived item level.
type Result struct {
	ILvl     int32
	Relative bool
}

// Resolve implements §4.1: fold the bonus list into a relative delta, a
// base level, or a winning curve bonus (highest CurveID wins when more
// than one curve is present), then derive the final ilvl. Callers are
// expected to have already filtered bonuses down to ids present in
// MapBonuses (ItemString does this before calling Resolve). An ok of
// false means "no ilvl", matching the Python original's None sentinel.
func Resolve(bonuses []int32, plvl *int32) (result Result, ok bool, err error) {
	if len(bonuses) == 0 {
		return Result{}, false, nil
	}

	p := DefaultPlayerLevel
	if plvl != nil {
		p = *plvl
	}

	var ilvlRel *int32
	var ilvlBase *int32
	var lastCurveBonus *int32

	for _, bid := range bonuses {
		info, present := MapBonuses[bid]
		if !present {
			continue
		}
		switch {
		case info.Level != nil:
			if ilvlRel == nil {
				ilvlRel = i32(*info.Level)
			} else {
				ilvlRel = i32(*ilvlRel + *info.Level)
			}
		case info.BaseLevel != nil:
			if ilvlBase == nil {
				ilvlBase = i32(*info.BaseLevel)
			}
		case info.CurveID != nil:
			if lastCurveBonus == nil {
				lastCurveBonus = i32(bid)
			} else if MapBonuses[*lastCurveBonus].CurveID != nil &&
				*MapBonuses[*lastCurveBonus].CurveID < *info.CurveID {
				lastCurveBonus = i32(bid)
			}
		}
	}

	if ilvlBase == nil && ilvlRel == nil && lastCurveBonus == nil {
		return Result{}, false, nil
	}

	if lastCurveBonus == nil {
		if ilvlBase == nil {
			return Result{ILvl: *ilvlRel, Relative: true}, true, nil
		}
		ilvl := *ilvlBase
		if ilvlRel != nil {
			ilvl += *ilvlRel
		}
		if ilvl < 0 {
			return Result{}, false, nil
		}
		return Result{ILvl: ilvl, Relative: false}, true, nil
	}

	ilvl, err := evalCurve(*lastCurveBonus, p)
	if err != nil {
		return Result{}, false, err
	}
	if ilvl < 0 {
		return Result{}, false, nil
	}
	return Result{ILvl: ilvl, Relative: false}, true, nil
}

// evalCurve clamps plvl into the curve's domain, returns an exact match
// when present, otherwise linearly interpolates between the bracketing
// points and rounds half up. Results are memoized by (bonus id, plvl).
func evalCurve(bonusID int32, plvl int32) (int32, error) {
	key := curveKey{bonusID: bonusID, plvl: plvl}
	if v, ok := memoGet(key); ok {
		return v, nil
	}

	points := MapBonuses[bonusID].Points
	if len(points) == 0 {
		return 0, ErrInvalidCurve
	}

	if plvl < points[0].PLvl {
		plvl = points[0].PLvl
	}
	if plvl > points[len(points)-1].PLvl {
		plvl = points[len(points)-1].PLvl
	}

	var p1, p2 *Point
	for i := range points {
		if points[i].PLvl == plvl {
			memoPut(key, points[i].ILvl)
			return points[i].ILvl, nil
		}
		if points[i].PLvl > plvl {
			p2 = &points[i]
			break
		}
		p1 = &points[i]
	}
	if p1 == nil || p2 == nil {
		return 0, ErrInvalidCurve
	}

	ilvl := roundHalfUp(
		float64(plvl-p1.PLvl)*float64(p2.ILvl-p1.ILvl)/float64(p2.PLvl-p1.PLvl) + float64(p1.ILvl),
	)
	memoPut(key, ilvl)
	return ilvl, nil
}

func roundHalfUp(v float64) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return -int32(-v + 0.5)
}
