// Package octree implements a probabilistic occupancy octree over a fixed depth key space. Range observations are
// fused into leaf voxels and the tree answers point lookups, ray traversals and region queries.
//
// The tree is generic over its node type. The node type owns the occupancy law (how an observation changes its
// estimate and how the estimate is classified); the tree only decides which nodes exist and in which order they are
// visited. None of the operations are safe for concurrent use.
package octree

import (
	"github.com/pkg/errors"
)

const (
	// TreeDepth is the number of levels below the root. Leaves live at depth TreeDepth.
	TreeDepth = 16
	// treeMaxVal is the key assigned to the voxel just above the origin on every axis.
	treeMaxVal = 1 << (TreeDepth - 1)
	// numChildren is the branching factor of the tree.
	numChildren = 8
)

var (
	// ErrOutOfBounds is returned when a coordinate cannot be expressed as a key.
	ErrOutOfBounds = errors.New("coordinate is outside the bounds of the octree")
	// ErrInvalidResolution is returned for a non-positive leaf edge length.
	ErrInvalidResolution = errors.New("octree resolution must be positive")
	// ErrZeroDirection is returned when a ray is cast without a direction.
	ErrZeroDirection = errors.New("ray direction must be non-zero")
)

// NodeView is the read-only surface of a node handed out by the tree. Callers may inspect the node but all structural
// changes go through the tree.
type NodeView interface {
	// IsOccupied reports whether the fused estimate classifies the node as occupied.
	IsOccupied() bool
	// IsFree reports whether the fused estimate classifies the node as free. A node that is neither occupied nor free
	// is unknown.
	IsFree() bool
	// Confidence returns the fused occupancy estimate in the node type's own units.
	Confidence() float64
	// HasChildren reports whether the node is interior.
	HasChildren() bool
	// ChildExists reports whether the child in octant i has been created.
	ChildExists(i int) bool
}

// Node is the capability a node type must provide to be stored in a Tree. N is the concrete node type itself, so that
// children come back with their full type.
type Node[N any] interface {
	NodeView

	// Child returns the child in octant i. It must only be called when ChildExists(i) is true.
	Child(i int) N
	// CreateChild allocates the child in octant i and returns it.
	CreateChild(i int) N
	// FuseObservation integrates one occupied or free measurement into a leaf. justCreated is set when the node was
	// allocated while handling this very measurement and therefore holds no prior estimate.
	FuseObservation(occupied, justCreated bool)
	// UpdateFromChildren refreshes an interior node's own estimate after one of its children changed.
	UpdateFromChildren()
	// ChildrenUniform reports whether all eight children exist, are leaves and share one classification.
	ChildrenUniform() bool
}

// occupancyClass is the three way classification used by ray casting and region queries.
type occupancyClass uint8

const (
	classUnknown occupancyClass = iota
	classFree
	classOccupied
)

func classify(n NodeView) occupancyClass {
	switch {
	case n.IsOccupied():
		return classOccupied
	case n.IsFree():
		return classFree
	default:
		return classUnknown
	}
}
