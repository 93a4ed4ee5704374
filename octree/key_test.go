package octree

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCoordToKey(t *testing.T) {
	tree := createNewOccupancyTree(t, 1.0)

	for _, tc := range []struct {
		name  string
		value float64
		key   uint16
		ok    bool
	}{
		{"just above origin", 0.5, treeMaxVal, true},
		{"origin", 0, treeMaxVal, true},
		{"just below origin", -0.5, treeMaxVal - 1, true},
		{"largest", treeMaxVal - 0.1, 2*treeMaxVal - 1, true},
		{"smallest", -treeMaxVal, 0, true},
		{"too large", treeMaxVal, 0, false},
		{"too small", -treeMaxVal - 0.1, 0, false},
		{"far away", 1e6, 0, false},
		{"nan", math.NaN(), 0, false},
		{"infinite", math.Inf(1), 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := tree.coordToKey(tc.value)
			test.That(t, ok, test.ShouldEqual, tc.ok)
			if tc.ok {
				test.That(t, key, test.ShouldEqual, tc.key)
			}
		})
	}

	_, err := tree.CoordToKey(r3.Vector{X: 0, Y: 1e6, Z: 0})
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
}

func TestKeyRoundTrip(t *testing.T) {
	for _, resolution := range []float64{1.0, 0.1, 0.05, 2.5} {
		tree := createNewOccupancyTree(t, resolution)
		limit := resolution * treeMaxVal
		for _, p := range []r3.Vector{
			{X: 0.123, Y: -0.456, Z: 0.789},
			{X: -limit * 0.99, Y: limit * 0.99, Z: 0},
			{X: 3.3, Y: 3.3, Z: -3.3},
			{X: resolution / 3, Y: -resolution / 3, Z: resolution * 7.25},
		} {
			key, err := tree.CoordToKey(p)
			test.That(t, err, test.ShouldBeNil)
			center := tree.KeyToCoord(key)

			// the center is in the same voxel as p, at most half a voxel away on each axis
			test.That(t, math.Abs(center.X-p.X), test.ShouldBeLessThanOrEqualTo, resolution/2+1e-9)
			test.That(t, math.Abs(center.Y-p.Y), test.ShouldBeLessThanOrEqualTo, resolution/2+1e-9)
			test.That(t, math.Abs(center.Z-p.Z), test.ShouldBeLessThanOrEqualTo, resolution/2+1e-9)

			again, err := tree.CoordToKey(center)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, again, test.ShouldResemble, key)
			test.That(t, tree.KeyToCoord(again), test.ShouldResemble, center)
		}
	}
}

func TestKeyToCoord(t *testing.T) {
	tree := createNewOccupancyTree(t, 0.1)
	center := tree.KeyToCoord(Key{treeMaxVal + 1, treeMaxVal, treeMaxVal - 1})
	test.That(t, center.X, test.ShouldAlmostEqual, 0.15)
	test.That(t, center.Y, test.ShouldAlmostEqual, 0.05)
	test.That(t, center.Z, test.ShouldAlmostEqual, -0.05)
}

func TestOctant(t *testing.T) {
	key := Key{treeMaxVal, 0, 2*treeMaxVal - 1}
	test.That(t, octant(key, 0), test.ShouldEqual, 5)
	test.That(t, octant(key, TreeDepth-1), test.ShouldEqual, 4)

	test.That(t, octant(Key{1, 1, 1}, TreeDepth-1), test.ShouldEqual, 7)
	test.That(t, octant(Key{1, 1, 1}, TreeDepth-2), test.ShouldEqual, 0)
	test.That(t, octant(Key{0, 2, 0}, TreeDepth-2), test.ShouldEqual, 2)
}

func TestChildCenters(t *testing.T) {
	tree := createNewOccupancyTree(t, 1.0)
	test.That(t, tree.voxelSize(0), test.ShouldEqual, float64(2*treeMaxVal))
	test.That(t, tree.voxelSize(TreeDepth), test.ShouldEqual, 1.0)

	// descending along the octants of a key ends at the key's center
	key, err := tree.CoordToKey(r3.Vector{X: 12.3, Y: -7.9, Z: 0.2})
	test.That(t, err, test.ShouldBeNil)
	center := r3.Vector{}
	for depth := 0; depth < TreeDepth; depth++ {
		center = tree.childCenter(center, depth+1, octant(key, depth))
	}
	test.That(t, center, test.ShouldResemble, tree.KeyToCoord(key))
}
