package octree

import (
	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/occmap/pointcloud"
)

// InsertPointCloud integrates one scan taken from origin. Every voxel crossed by a beam gets a single free update and
// every voxel holding an endpoint a single occupied update, even when several beams share it; a voxel that is both
// crossed and hit within the scan counts as hit. Beams longer than maxRange (when maxRange > 0) only clear space up to
// maxRange and leave their endpoint unobserved.
//
// Endpoints outside the tree's bounds are skipped. Their errors are combined and returned after the remaining beams
// have been applied. An out of bounds origin fails the whole scan before anything is applied.
func (t *Tree[N]) InsertPointCloud(origin r3.Vector, cloud pointcloud.PointCloud, maxRange float64) error {
	if _, err := t.CoordToKey(origin); err != nil {
		return err
	}

	free := make(map[Key]struct{})
	occupied := make(map[Key]struct{})
	var errs error
	var skipped int
	cloud.Iterate(0, 0, func(p r3.Vector, _ pointcloud.Data) bool {
		end := p
		hit := true
		if beam := p.Sub(origin); maxRange > 0 && beam.Norm() > maxRange {
			end = origin.Add(beam.Normalize().Mul(maxRange))
			hit = false
		}

		ray, err := t.ComputeRayKeys(origin, end)
		if err != nil {
			skipped++
			errs = multierr.Append(errs, err)
			return true
		}
		for _, key := range ray {
			free[key] = struct{}{}
		}
		if hit {
			// ComputeRayKeys already checked end
			endKey, _ := t.CoordToKey(end)
			occupied[endKey] = struct{}{}
		}
		return true
	})

	freeKeys := lo.Filter(lo.Keys(free), func(key Key, _ int) bool {
		_, hit := occupied[key]
		return !hit
	})
	for _, key := range freeKeys {
		t.UpdateNodeKey(key, false)
	}
	for key := range occupied {
		t.UpdateNodeKey(key, true)
	}

	t.logger.Debugw("integrated point cloud",
		"origin", origin,
		"points", cloud.Size(),
		"free", len(freeKeys),
		"occupied", len(occupied),
		"skipped", skipped,
	)
	return errs
}
