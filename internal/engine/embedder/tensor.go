package embedder

// InputTensors holds the three parallel integer tensors the encoder expects,
// all of logical shape [1, L]. A fixed struct rather than a per-call map:
// the session still validates names defensively, but callers cannot mis-key.
type InputTensors struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// BuildTensors assembles input tensors from an id sequence: an all-ones
// attention mask and all-zeros segment ids of equal length. Pure function.
func BuildTensors(ids []int64) InputTensors {
	n := len(ids)
	inputIDs := make([]int64, n)
	copy(inputIDs, ids)

	mask := make([]int64, n)
	for i := range mask {
		mask[i] = 1
	}

	return InputTensors{
		InputIDs:      inputIDs,
		AttentionMask: mask,
		TokenTypeIDs:  make([]int64, n), // all zeros
	}
}

// SeqLen returns L, the shared length of the three tensors.
func (t InputTensors) SeqLen() int64 {
	return int64(len(t.InputIDs))
}

// inputs packs the tensors into the named map the session contract takes.
func (t InputTensors) inputs() map[string]Tensor {
	shape := []int64{1, t.SeqLen()}
	return map[string]Tensor{
		inputIDsName:      {Shape: shape, Data: t.InputIDs},
		attentionMaskName: {Shape: shape, Data: t.AttentionMask},
		tokenTypeIDsName:  {Shape: shape, Data: t.TokenTypeIDs},
	}
}
