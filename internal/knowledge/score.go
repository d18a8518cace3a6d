// Package knowledge implements the internal HR knowledge base: a hybrid
// BM25+vector index over policy documents and the retrieval-quality scoring
// that drives the orchestrator's escalation decisions.
package knowledge

import "math"

// Distances follow the cosine convention: nominal range [0,2], lower means
// more relevant.
const (
	relevantDistance  = 0.7
	sufficientAvg     = 0.7
	sufficientMin     = 0.5
	sufficientOverall = 0.6
	minRelevantDocs   = 3
)

// RetrievalQuality is the verdict of ScoreRetrieval over one result set.
type RetrievalQuality struct {
	AvgDistance float64 `json:"avg_distance"`
	MinDistance float64 `json:"min_distance"`
	MaxDistance float64 `json:"max_distance"`
	NumRelevant int     `json:"num_relevant"`

	DistanceScore    float64 `json:"distance_score"`
	CoverageScore    float64 `json:"coverage_score"`
	BestMatchScore   float64 `json:"best_match_score"`
	ConsistencyScore float64 `json:"consistency_score"`

	OverallConfidence float64 `json:"overall_confidence"`
	QualityTier       string  `json:"quality_tier"`
	IsSufficient      bool    `json:"is_sufficient"`
}

// ScoreRetrieval converts retrieval distances into a sufficiency verdict.
// It is a pure function: no side effects, no external calls.
//
// Component scores:
//   - distance:    max(0, 1 - avg/2)
//   - coverage:    min(1, numRelevant/N) where relevant means d < 0.7
//   - bestMatch:   max(0, 1 - min)
//   - consistency: max(0, 1 - populationStdDev)
//
// Overall confidence weights them 0.35/0.25/0.25/0.15. The result is
// sufficient only when avg < 0.7, at least 3 documents are relevant, overall
// confidence >= 0.6, and the best match has distance < 0.5.
func ScoreRetrieval(distances []float64) RetrievalQuality {
	if len(distances) == 0 {
		return RetrievalQuality{QualityTier: "poor"}
	}

	var sum float64
	minD := distances[0]
	maxD := distances[0]
	numRelevant := 0
	for _, d := range distances {
		sum += d
		if d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
		if d < relevantDistance {
			numRelevant++
		}
	}
	avg := sum / float64(len(distances))

	var variance float64
	for _, d := range distances {
		dev := d - avg
		variance += dev * dev
	}
	variance /= float64(len(distances))
	stdDev := math.Sqrt(variance)

	q := RetrievalQuality{
		AvgDistance: avg,
		MinDistance: minD,
		MaxDistance: maxD,
		NumRelevant: numRelevant,

		DistanceScore:    math.Max(0, 1-avg/2),
		CoverageScore:    math.Min(1, float64(numRelevant)/float64(len(distances))),
		BestMatchScore:   math.Max(0, 1-minD),
		ConsistencyScore: math.Max(0, 1-stdDev/1.0),
	}

	q.OverallConfidence = 0.35*q.DistanceScore +
		0.25*q.CoverageScore +
		0.25*q.BestMatchScore +
		0.15*q.ConsistencyScore

	switch {
	case q.OverallConfidence >= 0.8:
		q.QualityTier = "excellent"
	case q.OverallConfidence >= 0.6:
		q.QualityTier = "good"
	case q.OverallConfidence >= 0.4:
		q.QualityTier = "fair"
	default:
		q.QualityTier = "poor"
	}

	q.IsSufficient = avg < sufficientAvg &&
		numRelevant >= minRelevantDocs &&
		q.OverallConfidence >= sufficientOverall &&
		minD < sufficientMin

	return q
}
