package retriever

import (
	"math"
	"strings"

	"github.com/smallnest/ragpipe"
)

// applyMMR reselects k results by maximal marginal relevance. The score
// for each candidate is lambda*relevance - (1-lambda)*maxSimilarity to
// the already selected set, so lambda 1 keeps the similarity ranking
// and lambda near 0 maximizes diversity.
func applyMMR(results []ragpipe.SearchResult, k int, lambda float64) []ragpipe.SearchResult {
	if len(results) <= k {
		return results
	}

	selected := make([]ragpipe.SearchResult, 0, k)
	selected = append(selected, results[0])

	candidates := make([]ragpipe.SearchResult, len(results)-1)
	copy(candidates, results[1:])

	for len(selected) < k && len(candidates) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, candidate := range candidates {
			maxSimilarity := 0.0
			for _, chosen := range selected {
				similarity := documentSimilarity(candidate.Document, chosen.Document)
				if similarity > maxSimilarity {
					maxSimilarity = similarity
				}
			}

			mmrScore := lambda*candidate.Score - (1-lambda)*maxSimilarity
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}

		selected = append(selected, candidates[bestIdx])
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}

	return selected
}

// documentSimilarity compares two documents by their embeddings when
// both carry one, falling back to word-set Jaccard similarity.
func documentSimilarity(a, b ragpipe.Document) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosineSimilarity(a.Embedding, b.Embedding)
	}
	return jaccardSimilarity(a.Content, b.Content)
}

func jaccardSimilarity(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}

	setB := make(map[string]bool, len(wordsB))
	intersection := 0
	for _, w := range wordsB {
		if setB[w] {
			continue
		}
		setB[w] = true
		if setA[w] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
