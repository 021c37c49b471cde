package garment

import (
	"context"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/rimage"
	"go.viam.com/textiles/spatialmath"
	"go.viam.com/textiles/utils"
	"go.viam.com/textiles/vision/debugview"
	"go.viam.com/textiles/vision/features"
	"go.viam.com/textiles/vision/segmentation"
)

// Window titles of the debug batches emitted by Run.
const (
	WindowInput        = "input"
	WindowSegmentation = "plane segmentation"
	WindowClusters     = "clusters"
	WindowNormalized   = "normalized garment"
)

var clusterTags = []debugview.ColorTag{
	debugview.Blue, debugview.Yellow, debugview.Magenta,
}

// Result is everything a Run produces for one scan.
type Result struct {
	ID uuid.UUID

	// Nil when no plane was removed.
	Plane    *segmentation.PlaneModel
	Clusters []segmentation.ClusterIndices
	// Garment is the selected cluster in the input frame.
	Garment pc.PointCloud

	Box        *spatialmath.OrientedBoundingBox
	Transform  *spatialmath.Transform
	Normalized pc.PointCloud

	Normals     []features.Normal
	Descriptors []features.RadiiDescriptor
	Summary     DescriptorSummary

	Depth *rimage.DepthImage
}

// DescriptorSummary holds summary statistics of the descriptors of a Result.
type DescriptorSummary struct {
	MeanRMin, MedianRMin float64
	MeanRMax, MedianRMax float64
	// Fraction of points whose r_max reached the plane radius.
	FlatFraction float64
}

// Pipeline runs the full sequence of stages over a scan.
type Pipeline struct {
	cfg    Config
	sink   *debugview.Sink
	logger logging.Logger
}

// NewPipeline validates cfg and returns a pipeline using it. sink may be nil.
func NewPipeline(cfg Config, sink *debugview.Sink, logger logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate("garment"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Pipeline{cfg: cfg, sink: sink, logger: logger}, nil
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run processes cloud. Either a complete Result or an error is returned, never both.
func (p *Pipeline) Run(ctx context.Context, cloud pc.PointCloud) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "garment::Pipeline::Run")
	defer span.End()

	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("garment pipeline")
	}
	res := &Result{ID: uuid.New()}
	logger := p.logger

	clean, _ := pc.RemoveNaN(cloud)
	if clean.Size() == 0 {
		return nil, utils.NewEmptyInputError("garment pipeline")
	}
	if dropped := cloud.Size() - clean.Size(); dropped > 0 {
		logger.Debugw("removed invalid points", "count", dropped)
	}
	p.sink.AddCloud("input", clean, debugview.Original)
	if err := p.sink.Show(ctx, WindowInput); err != nil {
		return nil, err
	}

	seg, err := segmentation.SegmentPlane(
		ctx, clean, p.cfg.RansacIterations, p.cfg.RansacThreshold,
		rand.New(rand.NewSource(p.cfg.Seed)), logger.Sublogger("segmentation"))
	if err != nil {
		return nil, err
	}
	res.Plane = seg.Plane
	if seg.Plane != nil {
		p.sink.AddPlane("table", *seg.Plane, debugview.Red)
		p.sink.AddCloud("table inliers", seg.Inliers, debugview.Red)
	}
	p.sink.AddCloud("objects", seg.Outliers, debugview.Original)
	if err := p.sink.Show(ctx, WindowSegmentation); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	garment, clusters, err := p.selectGarment(ctx, seg.Outliers, logger)
	if err != nil {
		return nil, err
	}
	res.Clusters = clusters
	res.Garment = garment

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	box, transform, normalized, err := NormalizePose(garment, p.up(seg.Plane, garment))
	if err != nil {
		return nil, err
	}
	res.Box, res.Transform, res.Normalized = box, transform, normalized
	logger.Debugw("pose normalized",
		"center", box.Center, "extents", box.Extents, "eigenvalues", box.Eigenvalues)
	p.sink.AddBox("garment box", box, debugview.Green)
	p.sink.AddCloud("garment", garment, debugview.Original)
	p.sink.AddCloud("normalized", normalized, debugview.Magenta)
	if err := p.sink.Show(ctx, WindowNormalized); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := pc.NewKDTree(normalized)
	if err != nil {
		return nil, err
	}
	featureLogger := logger.Sublogger("features")
	res.Normals, err = features.EstimateNormals(
		ctx, normalized, tree, p.cfg.NormalRadius, p.cfg.viewpoint(), featureLogger)
	if err != nil {
		return nil, err
	}
	res.Descriptors, err = features.EstimateRSD(ctx, normalized, tree, res.Normals, features.RSDConfig{
		NormalRadius:    p.cfg.NormalRadius,
		CurvatureRadius: p.cfg.CurvatureRadius,
		PlaneRadius:     p.cfg.PlaneRadius,
	}, featureLogger)
	if err != nil {
		return nil, err
	}
	res.Summary = summarize(res.Descriptors, p.cfg.PlaneRadius)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Depth, err = rimage.ProjectDepthHistogram(
		normalized, p.cfg.HistogramResolution, p.cfg.Upsampling, logger.Sublogger("histogram"))
	if err != nil {
		return nil, err
	}

	logger.Infow("garment processed",
		"id", res.ID.String(),
		"input", cloud.Size(),
		"garment", garment.Size(),
		"clusters", len(clusters),
		"extents", box.Extents,
		"mean_r_min", res.Summary.MeanRMin,
		"mean_r_max", res.Summary.MeanRMax,
		"flat_fraction", res.Summary.FlatFraction,
		"histogram_cells", res.Depth.Occupied())
	return res, nil
}

func (p *Pipeline) selectGarment(
	ctx context.Context,
	objects pc.PointCloud,
	logger logging.Logger,
) (pc.PointCloud, []segmentation.ClusterIndices, error) {
	if objects.Size() == 0 {
		return nil, nil, utils.NewNoClusterFoundError(p.cfg.MinClusterSize)
	}
	tree, err := pc.NewKDTree(objects)
	if err != nil {
		return nil, nil, err
	}
	clusters, err := segmentation.ExtractClusters(ctx, objects, tree, segmentation.ClusterConfig{
		Tolerance: p.cfg.ClusterTolerance,
		MinSize:   p.cfg.MinClusterSize,
		MaxSize:   p.cfg.MaxClusterSize,
	}, logger.Sublogger("clustering"))
	if err != nil {
		return nil, nil, err
	}
	best, err := segmentation.SelectLargestCluster(clusters, p.cfg.MinClusterSize)
	if err != nil {
		return nil, nil, err
	}
	for i, cluster := range clusters {
		if p.sink.Enabled() {
			clusterCloud, err := segmentation.ClusterCloud(objects, cluster)
			if err != nil {
				return nil, nil, err
			}
			tag := clusterTags[i%len(clusterTags)]
			if i == best {
				tag = debugview.Green
			}
			p.sink.AddCloud("cluster", clusterCloud, tag)
		}
	}
	if err := p.sink.Show(ctx, WindowClusters); err != nil {
		return nil, nil, err
	}
	garment, err := segmentation.ClusterCloud(objects, clusters[best])
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("selected garment cluster", "index", best, "size", garment.Size(), "clusters", len(clusters))
	return garment, clusters, nil
}

// up is the direction the normalized z axis should point to: away from the table, or
// towards the viewpoint when no table was found.
func (p *Pipeline) up(plane *segmentation.PlaneModel, garment pc.PointCloud) r3.Vector {
	meta := garment.MetaData()
	if plane == nil {
		return p.cfg.viewpoint().Sub(meta.Center())
	}
	normal := plane.Normal()
	if plane.Distance(meta.Center()) < 0 {
		return normal.Mul(-1)
	}
	return normal
}

// NormalizePose fits an oriented bounding box to cloud and moves cloud into the box frame,
// where the box is centred at the origin with its major axis along x and minor axis along z.
// The minor axis is chosen to point along up. Applying the returned transform to the input
// gives the returned cloud.
func NormalizePose(
	cloud pc.PointCloud,
	up r3.Vector,
) (*spatialmath.OrientedBoundingBox, *spatialmath.Transform, pc.PointCloud, error) {
	if cloud == nil || cloud.Size() == 0 {
		return nil, nil, nil, utils.NewEmptyInputError("pose normalization")
	}
	box, err := spatialmath.ComputeOBB(pc.Vectors(cloud))
	if err != nil {
		return nil, nil, nil, err
	}
	box = box.AlignMinorAxis(up)
	transform := box.NormalizingTransform()
	return box, transform, pc.ApplyTransform(cloud, transform), nil
}

func summarize(descriptors []features.RadiiDescriptor, planeRadius float64) DescriptorSummary {
	if len(descriptors) == 0 {
		return DescriptorSummary{}
	}
	rMin := stats.Float64Data(lo.Map(descriptors, func(d features.RadiiDescriptor, _ int) float64 { return d.RMin }))
	rMax := stats.Float64Data(lo.Map(descriptors, func(d features.RadiiDescriptor, _ int) float64 { return d.RMax }))
	flat := lo.CountBy(descriptors, func(d features.RadiiDescriptor) bool { return d.RMax >= planeRadius })

	// stats only fails on empty input.
	var s DescriptorSummary
	s.MeanRMin, _ = rMin.Mean()
	s.MedianRMin, _ = rMin.Median()
	s.MeanRMax, _ = rMax.Mean()
	s.MedianRMax, _ = rMax.Median()
	s.FlatFraction = float64(flat) / float64(len(descriptors))
	return s
}
