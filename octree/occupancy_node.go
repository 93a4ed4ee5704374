package octree

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// SensorModel describes how a range sensor's hits and misses change a voxel's occupancy probability. All values are
// probabilities in (0, 1).
type SensorModel struct {
	// ProbHit is the occupancy probability implied by an endpoint falling into a voxel.
	ProbHit float64 `json:"prob_hit"`
	// ProbMiss is the occupancy probability implied by a beam passing through a voxel.
	ProbMiss float64 `json:"prob_miss"`
	// ClampMin and ClampMax bound the fused estimate so that a voxel can still change its mind.
	ClampMin float64 `json:"clamp_min"`
	ClampMax float64 `json:"clamp_max"`
	// OccupancyThreshold separates free voxels (below) from occupied ones (above).
	OccupancyThreshold float64 `json:"occupancy_threshold"`
}

// DefaultSensorModel returns the parameters commonly used for laser range finders.
func DefaultSensorModel() SensorModel {
	return SensorModel{
		ProbHit:            0.7,
		ProbMiss:           0.4,
		ClampMin:           0.1192,
		ClampMax:           0.971,
		OccupancyThreshold: 0.5,
	}
}

// Validate checks that every probability is usable as a log-odds value and that the model is consistent.
func (m SensorModel) Validate() error {
	for name, p := range map[string]float64{
		"prob_hit":            m.ProbHit,
		"prob_miss":           m.ProbMiss,
		"clamp_min":           m.ClampMin,
		"clamp_max":           m.ClampMax,
		"occupancy_threshold": m.OccupancyThreshold,
	} {
		if !(p > 0 && p < 1) {
			return errors.Errorf("%s must be in (0, 1), got %v", name, p)
		}
	}
	if m.ProbHit <= m.OccupancyThreshold {
		return errors.Errorf("prob_hit (%v) must be above occupancy_threshold (%v)", m.ProbHit, m.OccupancyThreshold)
	}
	if m.ProbMiss >= m.OccupancyThreshold {
		return errors.Errorf("prob_miss (%v) must be below occupancy_threshold (%v)", m.ProbMiss, m.OccupancyThreshold)
	}
	if m.ClampMin >= m.ClampMax {
		return errors.Errorf("clamp_min (%v) must be below clamp_max (%v)", m.ClampMin, m.ClampMax)
	}
	return nil
}

// Logit converts a probability into log-odds.
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// Probability converts log-odds into a probability.
func Probability(logOdds float64) float64 {
	return 1 - 1/(1+math.Exp(logOdds))
}

// fusionParams is a SensorModel in log-odds form, shared by every node of one tree.
type fusionParams struct {
	hit, miss          float32
	clampMin, clampMax float32
	threshold          float32
}

func newFusionParams(m SensorModel) *fusionParams {
	return &fusionParams{
		hit:       float32(Logit(m.ProbHit)),
		miss:      float32(Logit(m.ProbMiss)),
		clampMin:  float32(Logit(m.ClampMin)),
		clampMax:  float32(Logit(m.ClampMax)),
		threshold: float32(Logit(m.OccupancyThreshold)),
	}
}

// OccupancyNode stores a clamped log-odds occupancy estimate. Observations add the sensor model's hit or miss
// log-odds; interior nodes carry the most occupied estimate among their children.
type OccupancyNode struct {
	children *[numChildren]*OccupancyNode
	logOdds  float32
	params   *fusionParams
}

// NewOccupancyTree returns a tree of OccupancyNodes that fuses observations with model.
func NewOccupancyTree(resolution float64, model SensorModel, logger golog.Logger) (*Tree[*OccupancyNode], error) {
	if err := model.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sensor model")
	}
	params := newFusionParams(model)
	// the root starts exactly at the threshold, which classifies it as unknown
	return New(resolution, func() *OccupancyNode {
		return &OccupancyNode{logOdds: params.threshold, params: params}
	}, logger)
}

// IsOccupied reports whether the estimate is above the occupancy threshold.
func (n *OccupancyNode) IsOccupied() bool {
	return n.logOdds > n.params.threshold
}

// IsFree reports whether the estimate is below the occupancy threshold.
func (n *OccupancyNode) IsFree() bool {
	return n.logOdds < n.params.threshold
}

// Confidence returns the log-odds estimate.
func (n *OccupancyNode) Confidence() float64 {
	return float64(n.logOdds)
}

// Occupancy returns the estimate as a probability.
func (n *OccupancyNode) Occupancy() float64 {
	return Probability(float64(n.logOdds))
}

// AtClampingBound reports whether the estimate has saturated at either clamping bound.
func (n *OccupancyNode) AtClampingBound() bool {
	return n.logOdds <= n.params.clampMin || n.logOdds >= n.params.clampMax
}

// HasChildren reports whether any child exists.
func (n *OccupancyNode) HasChildren() bool {
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
func (n *OccupancyNode) ChildExists(i int) bool {
	return n.children != nil && n.children[i] != nil
}

// Child returns the child in octant i.
func (n *OccupancyNode) Child(i int) *OccupancyNode {
	return n.children[i]
}

// CreateChild allocates the child in octant i. The child starts at even odds.
func (n *OccupancyNode) CreateChild(i int) *OccupancyNode {
	if n.children == nil {
		n.children = &[numChildren]*OccupancyNode{}
	}
	child := &OccupancyNode{logOdds: n.params.threshold, params: n.params}
	n.children[i] = child
	return child
}

// FuseObservation adds the hit or miss log-odds and clamps the result. A node created for this observation takes the
// observation's log-odds as its whole estimate.
func (n *OccupancyNode) FuseObservation(occupied, justCreated bool) {
	delta := n.params.miss
	if occupied {
		delta = n.params.hit
	}
	if justCreated {
		n.logOdds = delta
	} else {
		n.logOdds += delta
	}
	if n.logOdds < n.params.clampMin {
		n.logOdds = n.params.clampMin
	} else if n.logOdds > n.params.clampMax {
		n.logOdds = n.params.clampMax
	}
}

// UpdateFromChildren sets the estimate to the largest log-odds among the children.
func (n *OccupancyNode) UpdateFromChildren() {
	maxLogOdds := float32(math.Inf(-1))
	for i := 0; i < numChildren; i++ {
		if n.ChildExists(i) && n.children[i].logOdds > maxLogOdds {
			maxLogOdds = n.children[i].logOdds
		}
	}
	if !math.IsInf(float64(maxLogOdds), -1) {
		n.logOdds = maxLogOdds
	}
}

// ChildrenUniform reports whether all eight children are leaves with the same classification.
func (n *OccupancyNode) ChildrenUniform() bool {
	return childrenUniform[*OccupancyNode](n)
}

// childrenUniform implements Node.ChildrenUniform for any node type.
func childrenUniform[N Node[N]](n N) bool {
	var first occupancyClass
	for i := 0; i < numChildren; i++ {
		if !n.ChildExists(i) {
			return false
		}
		child := n.Child(i)
		if child.HasChildren() {
			return false
		}
		class := classify(child)
		if i == 0 {
			first = class
		} else if class != first {
			return false
		}
	}
	return true
}
