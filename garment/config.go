// Package garment turns a raw scan of a garment lying on a table into a pose-normalized cloud
// with per-point curvature descriptors and a depth image.
package garment

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

// Config are the tunables of a Pipeline.
type Config struct {
	RansacThreshold  float64 `json:"ransac_threshold"`
	RansacIterations int     `json:"ransac_iterations"`

	ClusterTolerance float64 `json:"cluster_tolerance"`
	MinClusterSize   int     `json:"min_cluster_size"`
	// Zero means unbounded.
	MaxClusterSize int `json:"max_cluster_size,omitempty"`

	NormalRadius    float64   `json:"normal_radius"`
	CurvatureRadius float64   `json:"curvature_radius"`
	PlaneRadius     float64   `json:"plane_radius"`
	Viewpoint       []float64 `json:"viewpoint"`

	HistogramResolution int  `json:"histogram_resolution"`
	Upsampling          bool `json:"upsampling"`

	Seed int64 `json:"seed"`
}

// DefaultConfig returns the configuration used for tabletop garment scans.
func DefaultConfig() Config {
	return Config{
		RansacThreshold:     0.03,
		RansacIterations:    1000,
		ClusterTolerance:    0.005,
		MinClusterSize:      100,
		NormalRadius:        0.05,
		CurvatureRadius:     0.07,
		PlaneRadius:         0.2,
		Viewpoint:           []float64{0, 0, 2},
		HistogramResolution: 1024,
		Upsampling:          true,
		Seed:                1,
	}
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.RansacThreshold <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("ransac_threshold must be positive, got %v", config.RansacThreshold))
	}
	if config.RansacIterations <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("ransac_iterations must be positive, got %d", config.RansacIterations))
	}
	if config.ClusterTolerance <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("cluster_tolerance must be positive, got %v", config.ClusterTolerance))
	}
	if config.MinClusterSize < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("min_cluster_size must be at least 1, got %d", config.MinClusterSize))
	}
	if config.MaxClusterSize != 0 && config.MaxClusterSize < config.MinClusterSize {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_cluster_size %d is smaller than min_cluster_size %d", config.MaxClusterSize, config.MinClusterSize))
	}
	if config.NormalRadius <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("normal_radius must be positive, got %v", config.NormalRadius))
	}
	if config.CurvatureRadius <= config.NormalRadius {
		return utils.NewConfigValidationError(path, utils.NewDegenerateModelError("radius descriptor",
			"curvature_radius %v must be greater than normal_radius %v", config.CurvatureRadius, config.NormalRadius))
	}
	if config.PlaneRadius <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("plane_radius must be positive, got %v", config.PlaneRadius))
	}
	if len(config.Viewpoint) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "viewpoint")
	}
	if len(config.Viewpoint) != 3 {
		return utils.NewConfigValidationError(path, errors.Errorf("viewpoint must have 3 coordinates, got %d", len(config.Viewpoint)))
	}
	if !pc.IsFiniteVector(config.viewpoint()) {
		return utils.NewConfigValidationError(path, errors.New("viewpoint must be finite"))
	}
	if config.HistogramResolution <= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("histogram_resolution must be positive, got %d", config.HistogramResolution))
	}
	return nil
}

func (config *Config) viewpoint() r3.Vector {
	return r3.Vector{X: config.Viewpoint[0], Y: config.Viewpoint[1], Z: config.Viewpoint[2]}
}

// NewConfigFromAttributes decodes an attribute map over DefaultConfig and validates the
// result. Keys are the json tags of Config.
func NewConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "error decoding garment pipeline attributes")
	}
	if err := conf.Validate("garment"); err != nil {
		return nil, err
	}
	return &conf, nil
}

// ConfigSchema returns the JSON schema of Config.
func ConfigSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
