package octree

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"
)

func TestMetricBounds(t *testing.T) {
	tree := createNewOccupancyTree(t, 1.0)

	t.Run("root only", func(t *testing.T) {
		test.That(t, tree.MetricMin(), test.ShouldResemble, r3.Vector{})
		test.That(t, tree.MetricMax(), test.ShouldResemble, r3.Vector{})
		test.That(t, tree.MetricSize(), test.ShouldResemble, r3.Vector{})
		test.That(t, tree.MemoryFullGrid(), test.ShouldEqual, uint64(0))
	})

	_, err := tree.UpdateNode(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, true)
	test.That(t, err, test.ShouldBeNil)

	t.Run("single leaf", func(t *testing.T) {
		test.That(t, tree.MetricMin(), test.ShouldResemble, r3.Vector{})
		test.That(t, tree.MetricMax(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, tree.MemoryFullGrid(), test.ShouldEqual, uint64(4))
	})

	_, err = tree.UpdateNode(r3.Vector{X: -1.5, Y: 2.5, Z: 0.5}, false)
	test.That(t, err, test.ShouldBeNil)

	t.Run("box grows with new leaves", func(t *testing.T) {
		test.That(t, tree.MetricMin(), test.ShouldResemble, r3.Vector{X: -2, Y: 0, Z: 0})
		test.That(t, tree.MetricMax(), test.ShouldResemble, r3.Vector{X: 1, Y: 3, Z: 1})
		test.That(t, tree.MetricSize(), test.ShouldResemble, r3.Vector{X: 3, Y: 3, Z: 1})
		test.That(t, tree.MemoryFullGrid(), test.ShouldEqual, uint64(36))
	})

	t.Run("box contains every leaf center", func(t *testing.T) {
		test.That(t, tree.InsertRay(r3.Vector{X: 0.3, Y: 0.3, Z: 0.3}, r3.Vector{X: -6.2, Y: 4.4, Z: -3.1}), test.ShouldBeNil)
		lo, hi := tree.MetricMin(), tree.MetricMax()
		for _, leaf := range tree.LeafNodes(0) {
			c := leaf.Center
			test.That(t, c.X, test.ShouldBeBetween, lo.X, hi.X)
			test.That(t, c.Y, test.ShouldBeBetween, lo.Y, hi.Y)
			test.That(t, c.Z, test.ShouldBeBetween, lo.Z, hi.Z)
		}
		test.That(t, lo.X, test.ShouldEqual, -7.0)
		test.That(t, lo.Z, test.ShouldEqual, -4.0)
	})

	t.Run("clearing resets the box", func(t *testing.T) {
		tree.Clear()
		test.That(t, tree.MetricSize(), test.ShouldResemble, r3.Vector{})
		test.That(t, tree.MemoryFullGrid(), test.ShouldEqual, uint64(0))
	})
}

func TestCollector(t *testing.T) {
	tree := createNewOccupancyTree(t, 1.0)
	test.That(t, tree.InsertRay(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vector{X: 5.5, Y: 0.5, Z: 0.5}), test.ShouldBeNil)

	collector := NewCollector(tree, "occmap")
	test.That(t, testutil.CollectAndCount(collector), test.ShouldEqual, 4)

	registry := prometheus.NewPedanticRegistry()
	test.That(t, registry.Register(collector), test.ShouldBeNil)
	families, err := registry.Gather()
	test.That(t, err, test.ShouldBeNil)

	values := make(map[string]float64, len(families))
	for _, family := range families {
		test.That(t, len(family.GetMetric()), test.ShouldEqual, 1)
		values[family.GetName()] = family.GetMetric()[0].GetGauge().GetValue()
	}
	test.That(t, values, test.ShouldResemble, map[string]float64{
		"occmap_octree_nodes":             float64(tree.Size()),
		"occmap_octree_leaf_nodes":        6,
		"occmap_octree_resolution_meters": 1,
		"occmap_octree_full_grid_bytes":   24,
	})
}
