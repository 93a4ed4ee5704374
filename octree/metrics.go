package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// gridCellBytes is the size of one cell of a dense grid holding a single float32 log-odds value.
const gridCellBytes = 4

// MetricMin returns the lower corner of the box spanned by all leaf voxels.
func (t *Tree[N]) MetricMin() r3.Vector {
	t.calcMinMax()
	return t.bboxMin
}

// MetricMax returns the upper corner of the box spanned by all leaf voxels.
func (t *Tree[N]) MetricMax() r3.Vector {
	t.calcMinMax()
	return t.bboxMax
}

// MetricSize returns the extent of the box spanned by all leaf voxels on each axis.
func (t *Tree[N]) MetricSize() r3.Vector {
	t.calcMinMax()
	return t.bboxMax.Sub(t.bboxMin)
}

// MemoryFullGrid estimates the bytes a dense grid at the tree's resolution would need to cover MetricSize.
func (t *Tree[N]) MemoryFullGrid() uint64 {
	size := t.MetricSize()
	cells := math.Ceil(size.X/t.resolution) * math.Ceil(size.Y/t.resolution) * math.Ceil(size.Z/t.resolution)
	return uint64(cells) * gridCellBytes
}

// calcMinMax recomputes the bounding box after the tree's structure changed. A tree holding only its root has an
// empty box at the origin.
func (t *Tree[N]) calcMinMax() {
	if !t.bboxDirty {
		return
	}
	t.bboxDirty = false
	if !t.root.HasChildren() {
		t.bboxMin, t.bboxMax = r3.Vector{}, r3.Vector{}
		return
	}

	lo := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, leaf := range t.LeafNodes(0) {
		half := leaf.Size / 2
		lo.X = math.Min(lo.X, leaf.Center.X-half)
		lo.Y = math.Min(lo.Y, leaf.Center.Y-half)
		lo.Z = math.Min(lo.Z, leaf.Center.Z-half)
		hi.X = math.Max(hi.X, leaf.Center.X+half)
		hi.Y = math.Max(hi.Y, leaf.Center.Y+half)
		hi.Z = math.Max(hi.Z, leaf.Center.Z+half)
	}
	t.bboxMin, t.bboxMax = lo, hi
}
