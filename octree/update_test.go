package octree

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestUpdateNode(t *testing.T) {
	t.Run("first update creates the path to a leaf", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		node, err := tree.UpdateNode(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, true)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsOccupied(), test.ShouldBeTrue)
		test.That(t, tree.Size(), test.ShouldEqual, TreeDepth+1)
		test.That(t, tree.NumLeafNodes(), test.ShouldEqual, 1)
		test.That(t, tree.Root().IsOccupied(), test.ShouldBeTrue)
		validateOccupancyTree(t, tree)
	})

	t.Run("updating a sibling adds a single node", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		_, err := tree.UpdateNode(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, true)
		test.That(t, err, test.ShouldBeNil)
		_, err = tree.UpdateNode(r3.Vector{X: 1.5, Y: 0.5, Z: 0.5}, false)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tree.Size(), test.ShouldEqual, TreeDepth+2)
		test.That(t, tree.NumLeafNodes(), test.ShouldEqual, 2)
		validateOccupancyTree(t, tree)
	})

	t.Run("out of bounds leaves the tree unchanged", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		_, err := tree.UpdateNode(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, true)
		test.That(t, err, test.ShouldBeNil)

		node, err := tree.UpdateNode(r3.Vector{X: 1e6, Y: 0, Z: 0}, true)
		test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
		test.That(t, node, test.ShouldBeNil)
		test.That(t, tree.Size(), test.ShouldEqual, TreeDepth+1)
		validateOccupancyTree(t, tree)
	})

	t.Run("occupied updates never lower confidence", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 0.1)
		p := r3.Vector{X: -3.21, Y: 4.56, Z: 0.07}
		prev := -1e9
		for i := 0; i < 10; i++ {
			node, err := tree.UpdateNode(p, true)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, node.Confidence(), test.ShouldBeGreaterThanOrEqualTo, prev)
			prev = node.Confidence()
		}
		node, ok := tree.Search(p)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, node.(*OccupancyNode).AtClampingBound(), test.ShouldBeTrue)
		test.That(t, node.Confidence(), test.ShouldAlmostEqual, Logit(0.971), 1e-6)
		validateOccupancyTree(t, tree)
	})

	t.Run("free updates never raise confidence", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 0.1)
		p := r3.Vector{X: 1, Y: 2, Z: 3}
		prev := 1e9
		for i := 0; i < 10; i++ {
			node, err := tree.UpdateNode(p, false)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, node.Confidence(), test.ShouldBeLessThanOrEqualTo, prev)
			test.That(t, node.IsFree(), test.ShouldBeTrue)
			prev = node.Confidence()
		}
		test.That(t, prev, test.ShouldAlmostEqual, Logit(0.1192), 1e-6)
	})

	t.Run("a voxel can change its mind", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		p := r3.Vector{X: 2.5, Y: 2.5, Z: 2.5}
		_, err := tree.UpdateNode(p, false)
		test.That(t, err, test.ShouldBeNil)
		node, err := tree.UpdateNode(p, true)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsOccupied(), test.ShouldBeTrue)
		test.That(t, node.Confidence(), test.ShouldAlmostEqual, Logit(0.4)+Logit(0.7), 1e-6)
	})

	t.Run("by key", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		node := tree.UpdateNodeKey(Key{0, 0, 0}, true)
		test.That(t, node.IsOccupied(), test.ShouldBeTrue)
		found, ok := tree.Search(r3.Vector{X: -treeMaxVal, Y: -treeMaxVal, Z: -treeMaxVal})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, found, test.ShouldEqual, node)
	})
}

func TestInsertRay(t *testing.T) {
	t.Run("free along the ray and occupied at the end", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		origin := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
		end := r3.Vector{X: 5.5, Y: 0.5, Z: 0.5}
		test.That(t, tree.InsertRay(origin, end), test.ShouldBeNil)

		for x := 0.5; x < 5; x++ {
			node, ok := tree.Search(r3.Vector{X: x, Y: 0.5, Z: 0.5})
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, node.IsFree(), test.ShouldBeTrue)
		}
		node, ok := tree.Search(end)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, node.IsOccupied(), test.ShouldBeTrue)
		test.That(t, tree.NumLeafNodes(), test.ShouldEqual, 6)
		validateOccupancyTree(t, tree)
	})

	t.Run("origin and end in the same voxel", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		test.That(t, tree.InsertRay(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vector{X: 0.9, Y: 0.9, Z: 0.9}), test.ShouldBeNil)
		test.That(t, tree.Size(), test.ShouldEqual, TreeDepth+1)
		node, ok := tree.Search(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, node.IsOccupied(), test.ShouldBeTrue)
	})

	t.Run("out of bounds endpoints leave the tree unchanged", func(t *testing.T) {
		tree := createNewOccupancyTree(t, 1.0)
		test.That(t, tree.InsertRay(r3.Vector{}, r3.Vector{X: 2, Y: 2, Z: 2}), test.ShouldBeNil)
		size := tree.Size()

		err := tree.InsertRay(r3.Vector{}, r3.Vector{X: 1e6})
		test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
		err = tree.InsertRay(r3.Vector{X: -1e6}, r3.Vector{})
		test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
		test.That(t, tree.Size(), test.ShouldEqual, size)
		validateOccupancyTree(t, tree)
	})
}

func TestHitCountNode(t *testing.T) {
	tree, err := NewHitCountTree(1.0, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.Root().Confidence(), test.ShouldEqual, 0.5)
	test.That(t, tree.Root().IsOccupied(), test.ShouldBeFalse)
	test.That(t, tree.Root().IsFree(), test.ShouldBeFalse)

	p := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	for i := 0; i < 3; i++ {
		_, err := tree.UpdateNode(p, true)
		test.That(t, err, test.ShouldBeNil)
	}
	view, err := tree.UpdateNode(p, false)
	test.That(t, err, test.ShouldBeNil)
	node := view.(*HitCountNode)
	test.That(t, node.Hits(), test.ShouldEqual, uint32(3))
	test.That(t, node.Misses(), test.ShouldEqual, uint32(1))
	test.That(t, node.IsOccupied(), test.ShouldBeTrue)
	test.That(t, node.Confidence(), test.ShouldEqual, 0.75)

	// a tie is unknown
	for i := 0; i < 2; i++ {
		_, err := tree.UpdateNode(p, false)
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, node.IsOccupied(), test.ShouldBeFalse)
	test.That(t, node.IsFree(), test.ShouldBeFalse)

	// interior nodes follow their most occupied child
	_, err = tree.UpdateNode(r3.Vector{X: 1.5, Y: 0.5, Z: 0.5}, false)
	test.That(t, err, test.ShouldBeNil)
	root := tree.Root().(*HitCountNode)
	test.That(t, root.Hits(), test.ShouldEqual, uint32(3))
	test.That(t, root.Misses(), test.ShouldEqual, uint32(3))

	_, err = tree.UpdateNode(r3.Vector{X: 1.5, Y: 1.5, Z: 0.5}, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root.Hits(), test.ShouldEqual, uint32(1))
	test.That(t, root.Misses(), test.ShouldEqual, uint32(0))
	test.That(t, root.IsOccupied(), test.ShouldBeTrue)
}
