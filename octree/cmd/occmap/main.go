// Package main builds an occupancy map from pcd or las scans and reports its metrics.
package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/docker/go-units"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/occmap/config"
	"go.viam.com/occmap/octree"
	"go.viam.com/occmap/pointcloud"
)

var logger = golog.NewDevelopmentLogger("occmap")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=map config file"`
	ScanDir    string `flag:"1,required,usage=directory of pcd or las scans"`
	Output     string `flag:"output,usage=write the centers of occupied voxels to this pcd file"`
	Debug      bool   `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logger = golog.NewDebugLogger("occmap")
	}
	var scans []string
	for _, pattern := range []string{"*.pcd", "*.las"} {
		matches, err := filepath.Glob(filepath.Join(argsParsed.ScanDir, pattern))
		if err != nil {
			return err
		}
		scans = append(scans, matches...)
	}
	if len(scans) == 0 {
		return errors.Errorf("no pcd or las scans found in %q", argsParsed.ScanDir)
	}
	// scans are integrated in name order
	slices.Sort(scans)

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	logger.Infof("map config:\n%s", cfg)

	switch cfg.NodeType {
	case config.NodeTypeHitCount:
		tree, err := octree.NewHitCountTree(cfg.Resolution, logger)
		if err != nil {
			return err
		}
		return buildMap(ctx, tree, cfg, scans, argsParsed.Output, logger)
	default:
		tree, err := octree.NewOccupancyTree(cfg.Resolution, *cfg.SensorModel, logger)
		if err != nil {
			return err
		}
		return buildMap(ctx, tree, cfg, scans, argsParsed.Output, logger)
	}
}

func buildMap[N octree.Node[N]](
	ctx context.Context,
	tree *octree.Tree[N],
	cfg *config.Config,
	scans []string,
	output string,
	logger golog.Logger,
) error {
	for _, fn := range scans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := integrateScan(tree, cfg, fn, logger); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(octree.NewCollector(tree, "occmap")); err != nil {
		return err
	}
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			logger.Infow("map metric", "name", family.GetName(), "value", m.GetGauge().GetValue())
		}
	}

	occupied := tree.Occupied(0)
	free := tree.Freespace(0)
	confidences := lo.FilterMap(occupied, func(v octree.Volume, _ int) (float64, bool) {
		node, ok := tree.Search(v.Center)
		if !ok {
			return 0, false
		}
		return node.Confidence(), true
	})
	logger.Infow("map summary",
		"occupied_volumes", len(occupied),
		"free_volumes", len(free),
		"occupied_m3", lo.SumBy(occupied, cube),
		"free_m3", lo.SumBy(free, cube),
		"min", tree.MetricMin(),
		"max", tree.MetricMax(),
		"full_grid", units.BytesSize(float64(tree.MemoryFullGrid())),
	)
	if len(confidences) > 0 {
		mean, std := stat.MeanStdDev(confidences, nil)
		logger.Infow("occupied confidence", "mean", mean, "stddev", std)
	}
	if output == "" {
		return nil
	}
	return writeOccupied(tree, output, logger)
}

// writeOccupied writes one point per occupied leaf, at its center.
func writeOccupied[N octree.Node[N]](tree *octree.Tree[N], fn string, logger golog.Logger) (err error) {
	cloud := pointcloud.New()
	for _, v := range tree.LeafNodes(0) {
		node, ok := tree.Search(v.Center)
		if !ok || !node.IsOccupied() {
			continue
		}
		if err := cloud.Set(v.Center, pointcloud.NewBasicData()); err != nil {
			return err
		}
	}
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := pointcloud.ToPCD(cloud, f, pointcloud.PCDBinary); err != nil {
		return err
	}
	logger.Infow("wrote occupied voxels", "file", fn, "points", cloud.Size())
	return nil
}

func integrateScan[N octree.Node[N]](tree *octree.Tree[N], cfg *config.Config, fn string, logger golog.Logger) error {
	cloud, viewpoint, err := pointcloud.NewFromFileWithViewpoint(fn, logger)
	if err != nil {
		return err
	}
	if cfg.Discretize {
		if cloud, err = pointcloud.VoxelDownsample(cloud, tree.Resolution()); err != nil {
			return err
		}
	}
	origin := cfg.SensorOrigin.Add(viewpoint)
	if _, err := tree.CoordToKey(origin); err != nil {
		return errors.Wrapf(err, "scan %q was taken outside the map", fn)
	}
	if err := tree.InsertPointCloud(origin, cloud, cfg.MaxRange); err != nil {
		// the origin is in bounds, so only some endpoints were skipped
		logger.Warnw("some points of scan were outside the map", "scan", fn, "error", err)
	}
	logger.Infow("integrated scan", "scan", fn, "points", cloud.Size(), "nodes", tree.Size())
	return nil
}

func cube(v octree.Volume) float64 {
	return v.Size * v.Size * v.Size
}
