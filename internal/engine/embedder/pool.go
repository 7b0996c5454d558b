package embedder

import (
	"fmt"
	"math"

	"github.com/quarry-ml/sonar/internal/model"
)

// normEpsilon guards against division instability for degenerate vectors.
const normEpsilon = 1e-12

// PoolAndNormalize extracts the pooled representation from the encoder's
// hidden-state output and rescales it to unit length.
//
// The hidden state must have rank 3 ([batch, sequence, hidden]); anything
// else is a model contract violation. Pooling takes the hidden-size slice at
// sequence position 0 (first-token pooling, the start-marker position).
func PoolAndNormalize(hidden OutputTensor) ([]float32, error) {
	if len(hidden.Shape) != 3 {
		return nil, fmt.Errorf("pool: expected rank-3 hidden state, got shape %v: %w",
			hidden.Shape, model.ErrInternal)
	}
	batch, seq, dim := hidden.Shape[0], hidden.Shape[1], hidden.Shape[2]
	if int64(len(hidden.Data)) != batch*seq*dim {
		return nil, fmt.Errorf("pool: hidden state has %d values, shape %v implies %d: %w",
			len(hidden.Data), hidden.Shape, batch*seq*dim, model.ErrInternal)
	}

	pooled := make([]float32, dim)
	copy(pooled, hidden.Data[:dim])

	l2Normalize(pooled)
	return pooled, nil
}

// l2Normalize rescales vec to unit Euclidean norm in place. A vector whose
// norm is at or below normEpsilon is left unchanged.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	n := math.Sqrt(sum)
	if n <= normEpsilon {
		return
	}
	inv := 1.0 / n
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
