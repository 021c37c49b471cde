package segmentation

import (
	"context"
	"sort"

	"go.opencensus.io/trace"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

// ClusterIndices are the ascending indices of the points of one cluster.
type ClusterIndices []int

// ClusterConfig holds the parameters of euclidean cluster extraction.
type ClusterConfig struct {
	Tolerance float64
	MinSize   int
	// MaxSize discards clusters with more points; zero means unbounded.
	MaxSize int
}

// ExtractClusters partitions cloud into groups of points connected by hops of at most
// cfg.Tolerance. Seeds are taken in input order and each cluster is grown breadth first.
// Clusters outside the size bounds are dropped and their points belong to no cluster.
// tree must index cloud; if nil one is built.
func ExtractClusters(
	ctx context.Context,
	cloud pc.PointCloud,
	tree *pc.KDTree,
	cfg ClusterConfig,
	logger logging.Logger,
) ([]ClusterIndices, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::ExtractClusters")
	defer span.End()

	if cloud == nil || cloud.Size() == 0 {
		return nil, nil
	}
	if tree == nil {
		var err error
		if tree, err = pc.NewKDTree(cloud); err != nil {
			return nil, err
		}
	}

	visited := make([]bool, cloud.Size())
	var clusters []ClusterIndices
	discarded := 0
	for seed := 0; seed < cloud.Size(); seed++ {
		if visited[seed] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		visited[seed] = true
		if !pc.IsFiniteVector(cloud.At(seed).P) {
			continue
		}
		cluster := ClusterIndices{seed}
		for frontier := 0; frontier < len(cluster); frontier++ {
			for _, nb := range tree.RadiusSearch(cloud.At(cluster[frontier]).P, cfg.Tolerance) {
				if !visited[nb] {
					visited[nb] = true
					cluster = append(cluster, nb)
				}
			}
		}
		if len(cluster) < cfg.MinSize || (cfg.MaxSize > 0 && len(cluster) > cfg.MaxSize) {
			discarded++
			continue
		}
		sort.Ints(cluster)
		clusters = append(clusters, cluster)
	}
	logger.Debugw("clusters extracted", "kept", len(clusters), "discarded", discarded)
	return clusters, nil
}

// SelectLargestCluster returns the index of the cluster with the most points. Ties go to
// the earliest cluster.
func SelectLargestCluster(clusters []ClusterIndices, minSize int) (int, error) {
	if len(clusters) == 0 {
		return -1, utils.NewNoClusterFoundError(minSize)
	}
	best := 0
	for i, c := range clusters {
		if len(c) > len(clusters[best]) {
			best = i
		}
	}
	return best, nil
}

// ClusterCloud returns the points of cluster as a new cloud in ascending index order.
func ClusterCloud(cloud pc.PointCloud, cluster ClusterIndices) (pc.PointCloud, error) {
	return pc.Subset(cloud, cluster)
}
