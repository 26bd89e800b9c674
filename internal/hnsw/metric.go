package hnsw

import (
	"fmt"
	"math"
)

// Metric names the similarity function an index is built with.
type Metric string

const (
	// MetricCosine scores by cosine similarity: 1 identical, 0 unrelated, -1 opposite.
	MetricCosine Metric = "cosine"
	// MetricEuclidean scores by 1 / (1 + euclidean distance), so identical vectors score 1
	// and scores shrink towards 0 as vectors move apart.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, MetricEuclidean:
		return Metric(name), nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q", name)
	}
}

// Similarity scores a against b. Higher is more similar for every metric.
func (m Metric) Similarity(a, b []float32) float64 {
	switch m {
	case MetricEuclidean:
		return 1 / (1 + euclideanDistance(a, b))
	default:
		return cosineSimilarity(a, b)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
