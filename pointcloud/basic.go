package pointcloud

import (
	"github.com/golang/geo/r3"
)

// memoryCloud is a PointCloud held entirely in memory. Each position is stored once; setting it again replaces its
// data.
type memoryCloud struct {
	store *matrixStorage
	meta  MetaData
}

// New returns an empty in-memory PointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty in-memory PointCloud with room for size points.
func NewWithPrealloc(size int) PointCloud {
	return &memoryCloud{store: newMatrixStorage(size), meta: NewMetaData()}
}

func (c *memoryCloud) Size() int {
	return c.store.Size()
}

func (c *memoryCloud) MetaData() MetaData {
	return c.meta
}

func (c *memoryCloud) At(x, y, z float64) (Data, bool) {
	return c.store.At(x, y, z)
}

// Set stores d at p. Only points not seen before extend the metadata.
func (c *memoryCloud) Set(p r3.Vector, d Data) error {
	added, err := c.store.Set(p, d)
	if err != nil {
		return err
	}
	if added {
		c.meta.Merge(p, d)
	}
	return nil
}

func (c *memoryCloud) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	c.store.Iterate(numBatches, myBatch, fn)
}
