package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/occmap/octree"
)

// Read reads a config from the given file.
func Read(filePath string, logger golog.Logger) (_ *Config, err error) {
	//nolint:gosec
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return FromReader(filePath, f, logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger golog.Logger) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Validate("map"); err != nil {
		return nil, err
	}

	if cfg.NodeType == "" {
		cfg.NodeType = NodeTypeOccupancy
	}
	if cfg.SensorModel == nil && cfg.NodeType == NodeTypeOccupancy {
		model := octree.DefaultSensorModel()
		cfg.SensorModel = &model
		logger.Debugw("no sensor model configured, using defaults", "sensor_model", model)
	}
	return &cfg, nil
}
