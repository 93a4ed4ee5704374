package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// dda walks the leaf voxel grid along a ray, one face-adjacent voxel per step.
type dda struct {
	key    [3]int
	step   [3]int
	tMax   [3]float64 // ray parameter at which the next boundary on each axis is crossed
	tDelta [3]float64 // ray parameter between two boundaries on each axis
	t      float64    // ray parameter at which the current voxel was entered
}

// newDDA prepares a walk starting in the voxel key, which must contain origin. direction must be a unit vector so
// that ray parameters are distances.
func (t *Tree[N]) newDDA(origin r3.Vector, key Key, direction r3.Vector) *dda {
	d := &dda{}
	o := [3]float64{origin.X, origin.Y, origin.Z}
	dir := [3]float64{direction.X, direction.Y, direction.Z}
	for i := 0; i < 3; i++ {
		d.key[i] = int(key[i])
		switch {
		case dir[i] > 0:
			d.step[i] = 1
		case dir[i] < 0:
			d.step[i] = -1
		default:
			d.tMax[i] = math.Inf(1)
			d.tDelta[i] = math.Inf(1)
			continue
		}
		border := float64(d.key[i]-treeMaxVal) * t.resolution
		if d.step[i] > 0 {
			border += t.resolution
		}
		d.tMax[i] = (border - o[i]) / dir[i]
		d.tDelta[i] = t.resolution / math.Abs(dir[i])
	}
	return d
}

// advance moves into the neighboring voxel whose boundary is crossed first. It reports false, without moving, when
// that voxel lies outside the key space.
func (d *dda) advance() bool {
	axis := 0
	if d.tMax[1] < d.tMax[axis] {
		axis = 1
	}
	if d.tMax[2] < d.tMax[axis] {
		axis = 2
	}
	next := d.key[axis] + d.step[axis]
	if next < 0 || next >= 2*treeMaxVal {
		return false
	}
	d.key[axis] = next
	d.t = d.tMax[axis]
	d.tMax[axis] += d.tDelta[axis]
	return true
}

func (d *dda) current() Key {
	return Key{uint16(d.key[0]), uint16(d.key[1]), uint16(d.key[2])}
}

// ComputeRayKeys returns the keys of the voxels traversed by the segment from origin to end, starting with the voxel
// containing origin and stopping before the voxel containing end. The result is empty when both share a voxel.
func (t *Tree[N]) ComputeRayKeys(origin, end r3.Vector) ([]Key, error) {
	originKey, err := t.CoordToKey(origin)
	if err != nil {
		return nil, err
	}
	endKey, err := t.CoordToKey(end)
	if err != nil {
		return nil, err
	}
	if originKey == endKey {
		return nil, nil
	}

	segment := end.Sub(origin)
	length := segment.Norm()
	d := t.newDDA(origin, originKey, segment.Mul(1/length))

	ray := []Key{originKey}
	for d.advance() {
		// rounding can step past the end voxel along a boundary; the length bound ends the walk regardless
		if d.t > length {
			break
		}
		key := d.current()
		if key == endKey {
			break
		}
		ray = append(ray, key)
	}
	return ray, nil
}

// ComputeRay returns the centers of the voxels traversed by the segment from origin to end, excluding the voxel
// containing end. It fails with ErrOutOfBounds when either endpoint is outside the tree's bounds.
func (t *Tree[N]) ComputeRay(origin, end r3.Vector) ([]r3.Vector, error) {
	keys, err := t.ComputeRayKeys(origin, end)
	if err != nil {
		return nil, err
	}
	ray := make([]r3.Vector, 0, len(keys))
	for _, key := range keys {
		ray = append(ray, t.KeyToCoord(key))
	}
	return ray, nil
}

// CastRay walks from origin along direction and returns the center of the first occupied voxel. The voxel containing
// origin is tested first. Free voxels are passed through. Unknown voxels end the walk without a hit unless
// ignoreUnknown is set, in which case they are treated as free. The walk also ends without a hit once a voxel center
// is farther than maxRange from origin (maxRange <= 0 means no limit) or the next voxel would leave the tree's
// bounds. Without a hit the returned point is the center of the last voxel examined.
func (t *Tree[N]) CastRay(origin, direction r3.Vector, ignoreUnknown bool, maxRange float64) (r3.Vector, bool, error) {
	key, err := t.CoordToKey(origin)
	if err != nil {
		return r3.Vector{}, false, err
	}
	norm := direction.Norm()
	if !(norm > 0) {
		return r3.Vector{}, false, ErrZeroDirection
	}

	center := t.KeyToCoord(key)
	switch t.classifyKey(key) {
	case classOccupied:
		return center, true, nil
	case classUnknown:
		if !ignoreUnknown {
			return center, false, nil
		}
	case classFree:
	}

	d := t.newDDA(origin, key, direction.Mul(1/norm))
	for d.advance() {
		key = d.current()
		next := t.KeyToCoord(key)
		if maxRange > 0 && next.Sub(origin).Norm() > maxRange {
			return center, false, nil
		}
		center = next
		switch t.classifyKey(key) {
		case classOccupied:
			return center, true, nil
		case classUnknown:
			if !ignoreUnknown {
				return center, false, nil
			}
		case classFree:
		}
	}
	return center, false, nil
}

// classifyKey classifies the node covering key. Voxels without a node are unknown.
func (t *Tree[N]) classifyKey(key Key) occupancyClass {
	node, ok := t.searchKey(key)
	if !ok {
		return classUnknown
	}
	return classify(node)
}
