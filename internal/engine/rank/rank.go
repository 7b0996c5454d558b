package rank

import (
	"fmt"
	"math"
	"sort"

	"github.com/quarry-ml/sonar/internal/model"
)

// Result pairs a document with its similarity score against a query.
// Results are transient; they live only until the response is assembled.
type Result struct {
	Doc   model.Document
	Score float64
}

// CosineSimilarity computes dot(a,b) / (‖a‖·‖b‖). Returns 0.0 when either
// norm is exactly zero, so ranking stays total. Vectors of different lengths
// cannot be compared.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("rank: vector length mismatch: %d != %d: %w",
			len(a), len(b), model.ErrInvalidArgument)
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Search scores every document against the query (full scan, no index),
// sorts descending by score, and returns the first topK results. Equal
// scores retain the relative order of the input documents. Requesting more
// results than documents returns everything, not an error. The document
// slice must not be mutated during the call.
func Search(query []float32, docs []model.Document, topK int) ([]Result, error) {
	if topK < 0 {
		return nil, fmt.Errorf("rank: negative top_k %d: %w", topK, model.ErrInvalidArgument)
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		score, err := CosineSimilarity(query, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("rank: document %s: %w", doc.ID, err)
		}
		results = append(results, Result{Doc: doc, Score: score})
	}

	// Stable sort: ties keep document order as supplied.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}
