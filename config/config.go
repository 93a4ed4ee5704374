// Package config defines the structures to configure an occupancy map and the means to read them from JSON.
package config

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/occmap/octree"
)

// NodeType selects the occupancy law of the map's nodes.
type NodeType string

// The supported node types.
const (
	NodeTypeOccupancy = NodeType("occupancy")
	NodeTypeHitCount  = NodeType("hit_count")
)

// Config describes an occupancy map and how scans are integrated into it.
type Config struct {
	ConfigFilePath string `json:"-"`

	// Resolution is the edge length of a leaf voxel in meters.
	Resolution float64 `json:"resolution"`
	// NodeType defaults to NodeTypeOccupancy.
	NodeType NodeType `json:"node_type,omitempty"`
	// SensorModel only applies to NodeTypeOccupancy and defaults to octree.DefaultSensorModel.
	SensorModel *octree.SensorModel `json:"sensor_model,omitempty"`
	// MaxRange truncates beams when positive.
	MaxRange float64 `json:"max_range,omitempty"`
	// SensorOrigin is added to each scan's own viewpoint.
	SensorOrigin r3.Vector `json:"sensor_origin"`
	// Discretize reduces each scan to one point per leaf voxel before its beams are traced.
	Discretize bool `json:"discretize,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.Resolution == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "resolution")
	}
	if !(config.Resolution > 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("resolution must be positive, got %v", config.Resolution))
	}
	if config.MaxRange < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_range must not be negative, got %v", config.MaxRange))
	}
	switch config.NodeType {
	case "", NodeTypeOccupancy, NodeTypeHitCount:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown node_type %q", config.NodeType))
	}
	if config.SensorModel != nil {
		if err := config.SensorModel.Validate(); err != nil {
			return utils.NewConfigValidationError(path+".sensor_model", err)
		}
	}
	return nil
}

// String renders the config as a table, one setting per row.
func (config *Config) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRow(table.Row{"resolution", config.Resolution})
	nodeType := config.NodeType
	if nodeType == "" {
		nodeType = NodeTypeOccupancy
	}
	t.AppendRow(table.Row{"node_type", nodeType})
	if model := config.SensorModel; model != nil {
		t.AppendRow(table.Row{"prob_hit", model.ProbHit})
		t.AppendRow(table.Row{"prob_miss", model.ProbMiss})
		t.AppendRow(table.Row{"clamp", fmt.Sprintf("[%v, %v]", model.ClampMin, model.ClampMax)})
		t.AppendRow(table.Row{"occupancy_threshold", model.OccupancyThreshold})
	}
	maxRange := "unlimited"
	if config.MaxRange > 0 {
		maxRange = fmt.Sprint(config.MaxRange)
	}
	t.AppendRow(table.Row{"max_range", maxRange})
	t.AppendRow(table.Row{"sensor_origin", config.SensorOrigin})
	t.AppendRow(table.Row{"discretize", config.Discretize})
	return t.Render()
}
