package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// matrixStorage keeps points in insertion order with an index from position to slot.
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

func newMatrixStorage(size int) *matrixStorage {
	return &matrixStorage{points: make([]PointAndData, 0, size), indexMap: make(map[r3.Vector]uint, size)}
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

// Set stores d at p and reports whether p was new. Positions that cannot be used as map keys or voxel coordinates
// are rejected.
func (ms *matrixStorage) Set(p r3.Vector, d Data) (bool, error) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return false, errors.Errorf("cannot store point with NaN coordinate %v", p)
	}
	if math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) || math.IsInf(p.Z, 0) {
		return false, errors.Errorf("cannot store point with infinite coordinate %v", p)
	}
	if idx, ok := ms.indexMap[p]; ok {
		ms.points[idx].D = d
		return false, nil
	}
	ms.points = append(ms.points, PointAndData{P: p, D: d})
	ms.indexMap[p] = uint(len(ms.points) - 1)
	return true, nil
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	idx, ok := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !ok {
		return nil, false
	}
	return ms.points[idx].D, true
}

// Iterate visits points in insertion order. With numBatches > 0 only the contiguous share of points belonging to
// myBatch is visited.
func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	lowerBound, upperBound := 0, len(ms.points)
	if numBatches > 0 {
		batchSize := (len(ms.points) + numBatches - 1) / numBatches
		lowerBound = myBatch * batchSize
		upperBound = min(lowerBound+batchSize, len(ms.points))
	}
	for i := lowerBound; i < upperBound; i++ {
		if !fn(ms.points[i].P, ms.points[i].D) {
			return
		}
	}
}
