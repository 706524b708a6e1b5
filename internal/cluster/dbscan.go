// Package cluster implements density-based clustering (DBSCAN) over
// embedding vectors with a cosine distance metric. Low-density points are
// labeled noise rather than forced into a cluster.
package cluster

import "math"

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

// Config controls the clustering pass.
type Config struct {
	// Epsilon is the cosine-distance neighborhood radius.
	Epsilon float64
	// MinSamples is the neighborhood size (self included) required for a
	// point to be a core point.
	MinSamples int
	// MinClusterSize drops clusters smaller than this to noise.
	MinClusterSize int
}

// DefaultConfig returns the clustering parameters used by the pipeline.
func DefaultConfig() Config {
	return Config{
		Epsilon:        0.35,
		MinSamples:     2,
		MinClusterSize: 3,
	}
}

// Assign labels every vector with a cluster index (0..n-1) or Noise.
// Labels are compact and ordered by cluster discovery.
func Assign(vectors [][]float32, cfg Config) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultConfig().Epsilon
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}

	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = norm(v)
	}

	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(vectors, norms, i, cfg.Epsilon)
		if len(neighbors) < cfg.MinSamples {
			continue // noise unless later absorbed by a cluster
		}

		labels[i] = next
		// Expand the cluster via the seed queue.
		for qi := 0; qi < len(neighbors); qi++ {
			j := neighbors[qi]
			if !visited[j] {
				visited[j] = true
				jn := regionQuery(vectors, norms, j, cfg.Epsilon)
				if len(jn) >= cfg.MinSamples {
					neighbors = append(neighbors, jn...)
				}
			}
			if labels[j] == Noise {
				labels[j] = next
			}
		}
		next++
	}

	if cfg.MinClusterSize > 1 {
		labels = pruneSmall(labels, next, cfg.MinClusterSize)
	}
	return labels
}

// pruneSmall drops clusters below the size floor to noise and renumbers
// the survivors compactly.
func pruneSmall(labels []int, clusters, minSize int) []int {
	sizes := make([]int, clusters)
	for _, l := range labels {
		if l >= 0 {
			sizes[l]++
		}
	}
	remap := make([]int, clusters)
	next := 0
	for c := 0; c < clusters; c++ {
		if sizes[c] >= minSize {
			remap[c] = next
			next++
		} else {
			remap[c] = Noise
		}
	}
	for i, l := range labels {
		if l >= 0 {
			labels[i] = remap[l]
		}
	}
	return labels
}

func regionQuery(vectors [][]float32, norms []float64, i int, eps float64) []int {
	var neighbors []int
	for j := range vectors {
		if CosineDistance(vectors[i], vectors[j], norms[i], norms[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// CosineDistance computes 1 - cosine similarity given precomputed norms.
// Zero vectors are maximally distant from everything.
func CosineDistance(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 1
	}
	var dot float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
	}
	return 1 - dot/(normA*normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
