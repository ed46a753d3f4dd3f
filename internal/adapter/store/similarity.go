package store

import (
	"math"
	"sort"

	"docrag/internal/domain"
)

// Score returns a similarity under metric; higher is always more similar.
func Score(metric domain.Metric, a, b []float32) float64 {
	switch metric {
	case domain.MetricDot:
		return dot(a, b)
	case domain.MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))
	default:
		return cosineSimilarity(a, b)
	}
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Rank scores every record against query and returns the best k, highest
// score first. Ties keep insertion order.
func Rank(metric domain.Metric, records []domain.VectorRecord, query []float32, k int) []domain.ScoredRecord {
	if k <= 0 || len(records) == 0 {
		return nil
	}

	scored := make([]domain.ScoredRecord, len(records))
	for i, r := range records {
		scored[i] = domain.ScoredRecord{Record: r, Score: Score(metric, query, r.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.Seq < scored[j].Record.Seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
