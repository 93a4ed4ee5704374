package octree

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a tree's size and footprint as Prometheus gauges. Collecting walks the tree, so the caller must
// serialize collection with any mutation of the tree, as for every other operation.
type Collector[N Node[N]] struct {
	tree *Tree[N]

	nodes      *prometheus.Desc
	leaves     *prometheus.Desc
	resolution *prometheus.Desc
	fullGrid   *prometheus.Desc
}

// NewCollector returns a Collector for tree with metric names prefixed by namespace.
func NewCollector[N Node[N]](tree *Tree[N], namespace string) *Collector[N] {
	return &Collector[N]{
		tree: tree,
		nodes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "octree", "nodes"),
			"Number of nodes in the octree, root included.",
			nil, nil,
		),
		leaves: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "octree", "leaf_nodes"),
			"Number of nodes without children.",
			nil, nil,
		),
		resolution: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "octree", "resolution_meters"),
			"Edge length of a leaf voxel.",
			nil, nil,
		),
		fullGrid: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "octree", "full_grid_bytes"),
			"Estimated bytes of a dense grid covering the mapped volume.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector[N]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.leaves
	ch <- c.resolution
	ch <- c.fullGrid
}

// Collect implements prometheus.Collector.
func (c *Collector[N]) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(c.tree.Size()))
	ch <- prometheus.MustNewConstMetric(c.leaves, prometheus.GaugeValue, float64(c.tree.NumLeafNodes()))
	ch <- prometheus.MustNewConstMetric(c.resolution, prometheus.GaugeValue, c.tree.Resolution())
	ch <- prometheus.MustNewConstMetric(c.fullGrid, prometheus.GaugeValue, float64(c.tree.MemoryFullGrid()))
}
