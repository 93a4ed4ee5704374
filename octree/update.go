package octree

import (
	"github.com/golang/geo/r3"
)

// UpdateNode integrates one occupied or free measurement at p and returns the updated leaf. Missing nodes on the
// path from the root are created. When p is outside the tree's bounds nothing is changed and ErrOutOfBounds is
// returned.
func (t *Tree[N]) UpdateNode(p r3.Vector, occupied bool) (NodeView, error) {
	key, err := t.CoordToKey(p)
	if err != nil {
		t.logger.Debugw("rejected occupancy update", "point", p, "error", err)
		return nil, err
	}
	return t.UpdateNodeKey(key, occupied), nil
}

// UpdateNodeKey is UpdateNode for a precomputed key. Every key is inside the tree's bounds, so it cannot fail.
func (t *Tree[N]) UpdateNodeKey(key Key, occupied bool) NodeView {
	return t.updateNodeRecurs(t.root, false, key, 0, occupied)
}

func (t *Tree[N]) updateNodeRecurs(node N, justCreated bool, key Key, depth int, occupied bool) N {
	if depth == TreeDepth {
		node.FuseObservation(occupied, justCreated)
		return node
	}

	pos := octant(key, depth)
	created := false
	if !node.ChildExists(pos) {
		node.CreateChild(pos)
		t.size++
		t.bboxDirty = true
		created = true
	}

	leaf := t.updateNodeRecurs(node.Child(pos), created, key, depth+1, occupied)
	node.UpdateFromChildren()
	return leaf
}

// InsertRay integrates a single beam: every voxel the segment from origin to end passes through is updated as free
// and the voxel containing end is updated as occupied. Both endpoints are checked before the tree is touched, so an
// out of bounds endpoint leaves the tree unchanged.
func (t *Tree[N]) InsertRay(origin, end r3.Vector) error {
	endKey, err := t.CoordToKey(end)
	if err != nil {
		return err
	}
	ray, err := t.ComputeRayKeys(origin, end)
	if err != nil {
		return err
	}
	for _, key := range ray {
		t.UpdateNodeKey(key, false)
	}
	t.UpdateNodeKey(endKey, true)
	return nil
}
