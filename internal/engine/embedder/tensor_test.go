package embedder

import "testing"

func TestBuildTensors(t *testing.T) {
	ids := []int64{0, 42, 7, 3}
	tensors := BuildTensors(ids)

	if got := tensors.SeqLen(); got != 4 {
		t.Fatalf("SeqLen() = %d, want 4", got)
	}
	for i, id := range ids {
		if tensors.InputIDs[i] != id {
			t.Errorf("InputIDs[%d] = %d, want %d", i, tensors.InputIDs[i], id)
		}
	}
	for i, m := range tensors.AttentionMask {
		if m != 1 {
			t.Errorf("AttentionMask[%d] = %d, want 1", i, m)
		}
	}
	for i, tt := range tensors.TokenTypeIDs {
		if tt != 0 {
			t.Errorf("TokenTypeIDs[%d] = %d, want 0", i, tt)
		}
	}
}

func TestBuildTensorsCopiesInput(t *testing.T) {
	ids := []int64{1, 2, 3}
	tensors := BuildTensors(ids)

	ids[0] = 99
	if tensors.InputIDs[0] == 99 {
		t.Error("BuildTensors shares the caller's slice")
	}
}

func TestInputsPacksNamedTensors(t *testing.T) {
	tensors := BuildTensors([]int64{0, 5, 3})
	inputs := tensors.inputs()

	for _, name := range []string{inputIDsName, attentionMaskName, tokenTypeIDsName} {
		in, ok := inputs[name]
		if !ok {
			t.Fatalf("missing input %q", name)
		}
		if len(in.Shape) != 2 || in.Shape[0] != 1 || in.Shape[1] != 3 {
			t.Errorf("%s shape = %v, want [1 3]", name, in.Shape)
		}
		if len(in.Data) != 3 {
			t.Errorf("%s data length = %d, want 3", name, len(in.Data))
		}
	}
}
