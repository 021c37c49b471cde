package garment

import (
	"encoding/json"
	"errors"
	"testing"

	"go.viam.com/test"

	"go.viam.com/textiles/utils"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("garment"), test.ShouldBeNil)
	test.That(t, cfg.RansacThreshold, test.ShouldEqual, 0.03)
	test.That(t, cfg.ClusterTolerance, test.ShouldEqual, 0.005)
	test.That(t, cfg.MinClusterSize, test.ShouldEqual, 100)
	test.That(t, cfg.NormalRadius, test.ShouldEqual, 0.05)
	test.That(t, cfg.CurvatureRadius, test.ShouldEqual, 0.07)
	test.That(t, cfg.PlaneRadius, test.ShouldEqual, 0.2)
	test.That(t, cfg.HistogramResolution, test.ShouldEqual, 1024)
	test.That(t, cfg.Upsampling, test.ShouldBeTrue)
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"threshold", func(c *Config) { c.RansacThreshold = 0 }, "ransac_threshold"},
		{"iterations", func(c *Config) { c.RansacIterations = -1 }, "ransac_iterations"},
		{"tolerance", func(c *Config) { c.ClusterTolerance = -0.1 }, "cluster_tolerance"},
		{"min size", func(c *Config) { c.MinClusterSize = 0 }, "min_cluster_size"},
		{"max size", func(c *Config) { c.MaxClusterSize = 10 }, "max_cluster_size"},
		{"normal radius", func(c *Config) { c.NormalRadius = 0 }, "normal_radius"},
		{"plane radius", func(c *Config) { c.PlaneRadius = 0 }, "plane_radius"},
		{"no viewpoint", func(c *Config) { c.Viewpoint = nil }, `"viewpoint" is required`},
		{"short viewpoint", func(c *Config) { c.Viewpoint = []float64{0, 1} }, "3 coordinates"},
		{"resolution", func(c *Config) { c.HistogramResolution = 0 }, "histogram_resolution"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate("garment")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, `error validating "garment"`)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errContains)
		})
	}
}

func TestConfigValidateRadii(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CurvatureRadius = cfg.NormalRadius
	err := cfg.Validate("garment")
	var degErr *utils.DegenerateModelError
	test.That(t, errors.As(err, &degErr), test.ShouldBeTrue)
	test.That(t, degErr.Model, test.ShouldEqual, "radius descriptor")

	_, err = NewPipeline(cfg, nil, nil)
	test.That(t, errors.As(err, &degErr), test.ShouldBeTrue)
}

func TestNewConfigFromAttributes(t *testing.T) {
	cfg, err := NewConfigFromAttributes(map[string]interface{}{
		"ransac_threshold": 0.01,
		"min_cluster_size": 20,
		"max_cluster_size": 5000,
		"upsampling":       false,
		"viewpoint":        []interface{}{0.0, 0.0, 1.0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.RansacThreshold, test.ShouldEqual, 0.01)
	test.That(t, cfg.MinClusterSize, test.ShouldEqual, 20)
	test.That(t, cfg.MaxClusterSize, test.ShouldEqual, 5000)
	test.That(t, cfg.Upsampling, test.ShouldBeFalse)
	test.That(t, cfg.Viewpoint, test.ShouldResemble, []float64{0, 0, 1})
	// Unset keys keep their defaults.
	test.That(t, cfg.RansacIterations, test.ShouldEqual, 1000)
	test.That(t, cfg.NormalRadius, test.ShouldEqual, 0.05)

	_, err = NewConfigFromAttributes(map[string]interface{}{"ransac_treshold": 0.01})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ransac_treshold")

	_, err = NewConfigFromAttributes(map[string]interface{}{"normal_radius": 0.1})
	var degErr *utils.DegenerateModelError
	test.That(t, errors.As(err, &degErr), test.ShouldBeTrue)
}

func TestConfigSchema(t *testing.T) {
	schema := ConfigSchema()
	test.That(t, schema, test.ShouldNotBeNil)
	b, err := json.Marshal(schema)
	test.That(t, err, test.ShouldBeNil)
	for _, key := range []string{"ransac_threshold", "cluster_tolerance", "curvature_radius", "histogram_resolution", "viewpoint"} {
		test.That(t, string(b), test.ShouldContainSubstring, key)
	}
}
