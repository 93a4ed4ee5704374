package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

/* In this file are functions to create a Voxel and a Voxel Grid from a point cloud.
A voxel is a cell of a regular grid in three-dimensional space. The grid used
here is aligned with the coordinate origin, so with a voxel size equal to a
map's resolution every voxel coincides with one leaf of the map.
*/

// VoxelCoords stores Voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// Voxel is the structure to store the points of a cloud falling into one grid cell.
type Voxel struct {
	Key    VoxelCoords
	Points []r3.Vector
	Center r3.Vector
	// Data is the data of the first point that fell into the voxel.
	Data Data
}

// ComputeCenter computes the barycenter of the points in the voxel.
func (v1 *Voxel) ComputeCenter() {
	center := r3.Vector{}
	for _, pt := range v1.Points {
		center = center.Add(pt)
	}
	v1.Center = center.Mul(1. / float64(len(v1.Points)))
}

// VoxelGrid contains the sparse grid of Voxels of a point cloud.
type VoxelGrid struct {
	Voxels    map[VoxelCoords]*Voxel
	voxelSize float64
}

// GetVoxelCoordinates computes the coordinates of the voxel containing pt.
func GetVoxelCoordinates(pt r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor(pt.X / voxelSize)),
		J: int64(math.Floor(pt.Y / voxelSize)),
		K: int64(math.Floor(pt.Z / voxelSize)),
	}
}

// NewVoxelGridFromPointCloud creates and fills a VoxelGrid from a point cloud.
func NewVoxelGridFromPointCloud(pc PointCloud, voxelSize float64) (*VoxelGrid, error) {
	if !(voxelSize > 0) {
		return nil, errors.Errorf("voxel size must be positive, got %v", voxelSize)
	}
	vg := &VoxelGrid{Voxels: make(map[VoxelCoords]*Voxel), voxelSize: voxelSize}
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		coords := GetVoxelCoordinates(p, voxelSize)
		vox, ok := vg.Voxels[coords]
		if !ok {
			vg.Voxels[coords] = &Voxel{Key: coords, Points: []r3.Vector{p}, Data: d}
			return true
		}
		vox.Points = append(vox.Points, p)
		return true
	})

	// All points are now assigned to a voxel in the voxel grid
	for _, vox := range vg.Voxels {
		vox.ComputeCenter()
	}
	return vg, nil
}

// VoxelSize returns the edge length of a voxel.
func (vg *VoxelGrid) VoxelSize() float64 {
	return vg.voxelSize
}

// GetVoxelFromKey returns a pointer to a voxel from a VoxelCoords key.
func (vg *VoxelGrid) GetVoxelFromKey(coords VoxelCoords) *Voxel {
	return vg.Voxels[coords]
}

// ToPointCloud returns a point cloud with one point per voxel, placed at the voxel's barycenter.
func (vg *VoxelGrid) ToPointCloud() (PointCloud, error) {
	pc := NewWithPrealloc(len(vg.Voxels))
	for _, vox := range vg.Voxels {
		if err := pc.Set(vox.Center, vox.Data); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// VoxelDownsample reduces a cloud to one point per voxel of edge voxelSize.
func VoxelDownsample(pc PointCloud, voxelSize float64) (PointCloud, error) {
	vg, err := NewVoxelGridFromPointCloud(pc, voxelSize)
	if err != nil {
		return nil, err
	}
	return vg.ToPointCloud()
}
