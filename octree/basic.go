package octree

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Tree is an occupancy octree of fixed depth whose nodes are of type N. The tree exclusively owns its root and every
// node below it; nodes are created lazily while observations are integrated and released only when the whole tree is
// cleared.
type Tree[N Node[N]] struct {
	logger     golog.Logger
	newRoot    func() N
	root       N
	resolution float64
	size       int

	bboxMin   r3.Vector
	bboxMax   r3.Vector
	bboxDirty bool
}

// New creates a tree whose leaves have an edge length of resolution. newRoot allocates an empty node of the tree's
// node type; it is called again whenever the tree is cleared. A nil logger discards all output.
func New[N Node[N]](resolution float64, newRoot func() N, logger golog.Logger) (*Tree[N], error) {
	if !(resolution > 0) {
		return nil, errors.Wrapf(ErrInvalidResolution, "got %v", resolution)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Tree[N]{
		logger:     logger,
		newRoot:    newRoot,
		root:       newRoot(),
		resolution: resolution,
		size:       1,
		bboxDirty:  true,
	}, nil
}

// Size returns the number of nodes in the tree, root included.
func (t *Tree[N]) Size() int {
	return t.size
}

// Resolution returns the edge length of a leaf voxel.
func (t *Tree[N]) Resolution() float64 {
	return t.resolution
}

// SetResolution changes the edge length of a leaf voxel. Existing nodes keep their keys, so every coordinate reported
// by the tree scales with the new resolution.
func (t *Tree[N]) SetResolution(resolution float64) error {
	if !(resolution > 0) {
		return errors.Wrapf(ErrInvalidResolution, "got %v", resolution)
	}
	t.resolution = resolution
	t.bboxDirty = true
	return nil
}

// Root returns a read-only view of the root node.
func (t *Tree[N]) Root() NodeView {
	return t.root
}

// Clear releases every node and starts over from an empty root.
func (t *Tree[N]) Clear() {
	t.root = t.newRoot()
	t.size = 1
	t.bboxDirty = true
}

// Search returns the node covering p. Descent stops at the first leaf on the path to p's voxel, so the result may be
// coarser than a leaf voxel. It reports false when the path leaves an interior node through a child that was never
// created, or when p is outside the tree's bounds.
func (t *Tree[N]) Search(p r3.Vector) (NodeView, bool) {
	key, err := t.CoordToKey(p)
	if err != nil {
		return nil, false
	}
	return t.SearchKey(key)
}

// SearchKey is Search for a precomputed key.
func (t *Tree[N]) SearchKey(key Key) (NodeView, bool) {
	node, ok := t.searchKey(key)
	if !ok {
		return nil, false
	}
	return node, true
}

func (t *Tree[N]) searchKey(key Key) (N, bool) {
	node := t.root
	for depth := 0; depth < TreeDepth; depth++ {
		pos := octant(key, depth)
		if node.ChildExists(pos) {
			node = node.Child(pos)
			continue
		}
		if !node.HasChildren() {
			return node, true
		}
		var none N
		return none, false
	}
	return node, true
}

// NumLeafNodes returns the number of nodes without children.
func (t *Tree[N]) NumLeafNodes() int {
	return countLeaves(t.root)
}

func countLeaves[N Node[N]](node N) int {
	if !node.HasChildren() {
		return 1
	}
	var count int
	for i := 0; i < numChildren; i++ {
		if node.ChildExists(i) {
			count += countLeaves(node.Child(i))
		}
	}
	return count
}
