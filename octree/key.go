package octree

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Key addresses a leaf voxel with one 16 bit index per axis. Read from the most significant bit down, the three
// components select the octant taken at each level on the way from the root to the leaf.
type Key [3]uint16

// String returns the key as a tuple of its components.
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k[0], k[1], k[2])
}

// coordToKey discretizes a single coordinate. It reports false when the coordinate falls outside the key space.
func (t *Tree[N]) coordToKey(v float64) (uint16, bool) {
	scaled := math.Floor(v/t.resolution) + treeMaxVal
	// written so that NaN fails the check as well
	if !(scaled >= 0 && scaled < 2*treeMaxVal) {
		return 0, false
	}
	return uint16(scaled), true
}

// keyToCoord returns the coordinate of the center of the leaf voxel with key component c.
func (t *Tree[N]) keyToCoord(c uint16) float64 {
	return (float64(c) - treeMaxVal + 0.5) * t.resolution
}

// CoordToKey returns the key of the leaf voxel containing p.
func (t *Tree[N]) CoordToKey(p r3.Vector) (Key, error) {
	var key Key
	for i, v := range [3]float64{p.X, p.Y, p.Z} {
		c, ok := t.coordToKey(v)
		if !ok {
			return Key{}, errors.Wrapf(ErrOutOfBounds, "point %v at resolution %v", p, t.resolution)
		}
		key[i] = c
	}
	return key, nil
}

// KeyToCoord returns the center of the leaf voxel addressed by key. KeyToCoord(CoordToKey(p)) is the center of the
// voxel containing p, not p itself.
func (t *Tree[N]) KeyToCoord(key Key) r3.Vector {
	return r3.Vector{X: t.keyToCoord(key[0]), Y: t.keyToCoord(key[1]), Z: t.keyToCoord(key[2])}
}

// octant returns the index of the child of a node at depth that lies on the path to key. Bit 0 of the index is the x
// bit, bit 1 the y bit and bit 2 the z bit.
func octant(key Key, depth int) int {
	bit := uint16(1) << uint(TreeDepth-1-depth)
	var pos int
	if key[0]&bit != 0 {
		pos |= 1
	}
	if key[1]&bit != 0 {
		pos |= 2
	}
	if key[2]&bit != 0 {
		pos |= 4
	}
	return pos
}

// voxelSize returns the edge length of a node at depth.
func (t *Tree[N]) voxelSize(depth int) float64 {
	return t.resolution * math.Ldexp(1, TreeDepth-depth)
}

// childCenter returns the center of the child in octant pos, given the center of its parent and the child's depth.
func (t *Tree[N]) childCenter(parent r3.Vector, depth, pos int) r3.Vector {
	offset := t.resolution * math.Ldexp(1, TreeDepth-depth-1)
	center := parent
	if pos&1 != 0 {
		center.X += offset
	} else {
		center.X -= offset
	}
	if pos&2 != 0 {
		center.Y += offset
	} else {
		center.Y -= offset
	}
	if pos&4 != 0 {
		center.Z += offset
	} else {
		center.Z -= offset
	}
	return center
}
