// Package lpca implements Local Principal Component Analysis (LPCA)
// clustering.
//
// LPCA partitions observations into k clusters, each described by a local
// q-dimensional principal subspace. Every observation is assigned to the
// cluster whose subspace reconstructs it with the smallest error; each
// cluster's subspace is then refitted from its members, and the two steps
// repeat until the partition stops changing. Clusters therefore follow
// low-dimensional manifolds rather than blobs around a centroid.
//
// Basic usage:
//
//	cfg := lpca.DefaultConfig()
//	cfg.NumClusters = 4
//	cfg.NumEigenvectors = 2
//	result, err := lpca.Cluster(data, cfg)
//	// result.Labels[i] is the cluster ID of observation i, in [0, 4)
//	// result.Status reports whether the iterations converged
//
// New observations are classified with the fitted model:
//
//	labels, err := result.Model.Classify(more)
//
// # Pipeline
//
// Columns are centered and scaled (Config.CenteringMethod,
// Config.ScalingMethod), an initial partition is built
// (Config.InitializationMethod), and the fit/reclassify loop runs until
// convergence or Config.MaxIterations. Clusters that fall below
// NumEigenvectors+1 members are re-seeded from the observations their
// current cluster explains worst. Optionally the labels are smoothed by a
// majority vote of each observation's nearest neighbors (Config.KNNPost),
// and PHC and Davies–Bouldin quality indices are computed
// (Config.EvaluateClustering).
package lpca
