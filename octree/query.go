package octree

import (
	"github.com/golang/geo/r3"
)

// Volume is a cubic region reported by a query.
type Volume struct {
	Center r3.Vector
	// Size is the edge length of the cube.
	Size float64
}

// effectiveDepth maps a query depth limit to a depth in [1, TreeDepth]. Zero, negative and too large limits mean
// no limit.
func effectiveDepth(maxDepth int) int {
	if maxDepth <= 0 || maxDepth > TreeDepth {
		return TreeDepth
	}
	return maxDepth
}

// LeafNodes returns every node without children down to maxDepth, plus every interior node found at maxDepth.
// maxDepth 0 means no limit.
func (t *Tree[N]) LeafNodes(maxDepth int) []Volume {
	var leaves []Volume
	t.leafNodesRecurs(&leaves, effectiveDepth(maxDepth), t.root, 0, r3.Vector{})
	return leaves
}

func (t *Tree[N]) leafNodesRecurs(leaves *[]Volume, maxDepth int, node N, depth int, center r3.Vector) {
	if !node.HasChildren() || depth == maxDepth {
		*leaves = append(*leaves, Volume{Center: center, Size: t.voxelSize(depth)})
		return
	}
	for i := 0; i < numChildren; i++ {
		if node.ChildExists(i) {
			t.leafNodesRecurs(leaves, maxDepth, node.Child(i), depth+1, t.childCenter(center, depth+1, i))
		}
	}
}

// Voxels returns every node down to maxDepth, interior and leaf alike. maxDepth 0 means no limit.
func (t *Tree[N]) Voxels(maxDepth int) []Volume {
	var voxels []Volume
	t.voxelsRecurs(&voxels, effectiveDepth(maxDepth), t.root, 0, r3.Vector{})
	return voxels
}

func (t *Tree[N]) voxelsRecurs(voxels *[]Volume, maxDepth int, node N, depth int, center r3.Vector) {
	*voxels = append(*voxels, Volume{Center: center, Size: t.voxelSize(depth)})
	if depth == maxDepth {
		return
	}
	for i := 0; i < numChildren; i++ {
		if node.ChildExists(i) {
			t.voxelsRecurs(voxels, maxDepth, node.Child(i), depth+1, t.childCenter(center, depth+1, i))
		}
	}
}

// Occupied returns the occupied regions of the tree down to maxDepth, binary regions first. See OccupiedSplit.
func (t *Tree[N]) Occupied(maxDepth int) []Volume {
	binary, delta := t.OccupiedSplit(maxDepth)
	return append(binary, delta...)
}

// OccupiedSplit returns the occupied regions of the tree down to maxDepth. Binary regions are subtrees that are
// uniformly occupied, reported once at their coarsest level. Delta regions are single voxels whose siblings disagree
// with them. A node cut off by maxDepth is judged by its own estimate, which counts it as occupied as soon as any
// node below it is occupied. maxDepth 0 means no limit.
func (t *Tree[N]) OccupiedSplit(maxDepth int) (binary, delta []Volume) {
	q := regionQuery{want: classOccupied}
	t.regions(&q, maxDepth)
	return q.binary, q.delta
}

// Freespace returns the free regions of the tree down to maxDepth, binary regions first. See FreespaceSplit.
func (t *Tree[N]) Freespace(maxDepth int) []Volume {
	binary, delta := t.FreespaceSplit(maxDepth)
	return append(binary, delta...)
}

// FreespaceSplit returns the free regions of the tree down to maxDepth, split into binary and delta regions as in
// OccupiedSplit. Together the two queries cover every classified voxel exactly once.
func (t *Tree[N]) FreespaceSplit(maxDepth int) (binary, delta []Volume) {
	q := regionQuery{want: classFree}
	t.regions(&q, maxDepth)
	return q.binary, q.delta
}

type regionQuery struct {
	want   occupancyClass
	binary []Volume
	delta  []Volume
}

func (t *Tree[N]) regions(q *regionQuery, maxDepth int) {
	class, uniform := t.regionsRecurs(q, effectiveDepth(maxDepth), t.root, 0, r3.Vector{})
	if uniform && class == q.want {
		q.binary = append(q.binary, Volume{Center: r3.Vector{}, Size: t.voxelSize(0)})
	}
}

// regionsRecurs reports whether the region below node is uniform and, if so, its class. A uniform region is left for
// the caller to report so that it ends up in the result at its coarsest level. When node is not uniform, its uniform
// children are reported here.
func (t *Tree[N]) regionsRecurs(q *regionQuery, maxDepth int, node N, depth int, center r3.Vector) (occupancyClass, bool) {
	if !node.HasChildren() || depth == maxDepth {
		return classify(node), true
	}
	if node.ChildrenUniform() {
		return classify(node.Child(0)), true
	}

	type childRegion struct {
		exists  bool
		class   occupancyClass
		uniform bool
		leaf    bool
		center  r3.Vector
	}
	var children [numChildren]childRegion
	uniform := true
	for i := 0; i < numChildren; i++ {
		if !node.ChildExists(i) {
			uniform = false
			continue
		}
		child := node.Child(i)
		c := childRegion{
			exists: true,
			leaf:   !child.HasChildren() || depth+1 == maxDepth,
			center: t.childCenter(center, depth+1, i),
		}
		c.class, c.uniform = t.regionsRecurs(q, maxDepth, child, depth+1, c.center)
		if !c.uniform || c.class == classUnknown || (i > 0 && c.class != children[0].class) {
			uniform = false
		}
		children[i] = c
	}
	if uniform {
		return children[0].class, true
	}

	size := t.voxelSize(depth + 1)
	for _, c := range children {
		if !c.exists || !c.uniform || c.class != q.want {
			continue
		}
		if c.leaf {
			q.delta = append(q.delta, Volume{Center: c.center, Size: size})
		} else {
			q.binary = append(q.binary, Volume{Center: c.center, Size: size})
		}
	}
	return classUnknown, false
}
