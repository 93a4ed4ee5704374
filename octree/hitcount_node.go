package octree

import (
	"github.com/edaniels/golog"
)

// HitCountNode keeps raw counts of occupied and free observations instead of a probability. A voxel is occupied when
// it was hit more often than it was passed through. Interior nodes copy the counts of their most occupied child.
type HitCountNode struct {
	children *[numChildren]*HitCountNode
	hits     uint32
	misses   uint32
}

// NewHitCountTree returns a tree of HitCountNodes.
func NewHitCountTree(resolution float64, logger golog.Logger) (*Tree[*HitCountNode], error) {
	return New(resolution, func() *HitCountNode { return &HitCountNode{} }, logger)
}

// Hits returns the number of occupied observations.
func (n *HitCountNode) Hits() uint32 {
	return n.hits
}

// Misses returns the number of free observations.
func (n *HitCountNode) Misses() uint32 {
	return n.misses
}

// IsOccupied reports whether hits outnumber misses.
func (n *HitCountNode) IsOccupied() bool {
	return n.hits > n.misses
}

// IsFree reports whether misses outnumber hits.
func (n *HitCountNode) IsFree() bool {
	return n.misses > n.hits
}

// Confidence returns the fraction of observations that were hits, or 0.5 without observations.
func (n *HitCountNode) Confidence() float64 {
	total := n.hits + n.misses
	if total == 0 {
		return 0.5
	}
	return float64(n.hits) / float64(total)
}

// HasChildren reports whether any child exists.
func (n *HitCountNode) HasChildren() bool {
	if n.children == nil {
		return false
	}
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

// ChildExists reports whether the child in octant i exists.
func (n *HitCountNode) ChildExists(i int) bool {
	return n.children != nil && n.children[i] != nil
}

// Child returns the child in octant i.
func (n *HitCountNode) Child(i int) *HitCountNode {
	return n.children[i]
}

// CreateChild allocates the child in octant i.
func (n *HitCountNode) CreateChild(i int) *HitCountNode {
	if n.children == nil {
		n.children = &[numChildren]*HitCountNode{}
	}
	child := &HitCountNode{}
	n.children[i] = child
	return child
}

// FuseObservation counts the observation.
func (n *HitCountNode) FuseObservation(occupied, justCreated bool) {
	if justCreated {
		n.hits, n.misses = 0, 0
	}
	if occupied {
		n.hits++
	} else {
		n.misses++
	}
}

// UpdateFromChildren copies the counts of the child with the highest confidence.
func (n *HitCountNode) UpdateFromChildren() {
	var best *HitCountNode
	for i := 0; i < numChildren; i++ {
		if !n.ChildExists(i) {
			continue
		}
		if best == nil || n.children[i].Confidence() > best.Confidence() {
			best = n.children[i]
		}
	}
	if best != nil {
		n.hits, n.misses = best.hits, best.misses
	}
}

// ChildrenUniform reports whether all eight children are leaves with the same classification.
func (n *HitCountNode) ChildrenUniform() bool {
	return childrenUniform[*HitCountNode](n)
}
