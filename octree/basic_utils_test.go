package octree

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func createNewOccupancyTree(t *testing.T, resolution float64) *Tree[*OccupancyNode] {
	t.Helper()
	tree, err := NewOccupancyTree(resolution, DefaultSensorModel(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return tree
}

// Helper function that recursively checks a tree's structure: the node count matches the reachable nodes, every
// interior node carries the most occupied estimate of its children and every leaf sits at the bottom of the tree.
func validateOccupancyTree(t *testing.T, tree *Tree[*OccupancyNode]) {
	t.Helper()

	var validate func(node *OccupancyNode, depth int) int
	validate = func(node *OccupancyNode, depth int) int {
		if !node.HasChildren() {
			if node != tree.root {
				test.That(t, depth, test.ShouldEqual, TreeDepth)
			}
			return 1
		}
		test.That(t, depth, test.ShouldBeLessThan, TreeDepth)

		count := 1
		maxChild := float32(-1e9)
		for i := 0; i < numChildren; i++ {
			if !node.ChildExists(i) {
				continue
			}
			child := node.Child(i)
			if child.logOdds > maxChild {
				maxChild = child.logOdds
			}
			count += validate(child, depth+1)
		}
		test.That(t, node.logOdds, test.ShouldEqual, maxChild)
		return count
	}
	test.That(t, validate(tree.root, 0), test.ShouldEqual, tree.Size())
}

// volumeContains reports whether p lies inside v, boundaries excluded.
func volumeContains(v Volume, p r3.Vector) bool {
	half := v.Size / 2
	d := p.Sub(v.Center)
	return d.X > -half && d.X < half && d.Y > -half && d.Y < half && d.Z > -half && d.Z < half
}

// Helper functions for visualizing an octree during testing
//
//nolint:unused
func stringOccupancyClass(c occupancyClass) string {
	switch c {
	case classOccupied:
		return "Occupied"
	case classFree:
		return "Free"
	case classUnknown:
		return "Unknown"
	}
	return ""
}

//nolint:unused
func printOccupancyTree(tree *Tree[*OccupancyNode], node *OccupancyNode, depth int, center r3.Vector, s string) {
	tree.logger.Infof("%v %.2f %.2f %.2f - %v | Side: %v LogOdds: %v\n", s,
		center.X, center.Y, center.Z, stringOccupancyClass(classify(node)), tree.voxelSize(depth), node.logOdds)

	for i := 0; i < numChildren; i++ {
		if node.ChildExists(i) {
			printOccupancyTree(tree, node.Child(i), depth+1, tree.childCenter(center, depth+1, i), s+"-+-")
		}
	}
}
