package embedder

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/quarry-ml/sonar/internal/model"
)

const testModelPath = "testdata/encoder.onnx"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testModelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func TestNewSessionMissingModel(t *testing.T) {
	_, err := NewSession(SessionConfig{ModelPath: "/nonexistent/encoder.onnx"})
	if !errors.Is(err, model.ErrModelArtifactMissing) {
		t.Fatalf("error = %v, want ErrModelArtifactMissing", err)
	}
}

func TestCheckInputNames(t *testing.T) {
	required := []string{inputIDsName, attentionMaskName, tokenTypeIDsName}

	tensor := Tensor{Shape: []int64{1, 1}, Data: []int64{0}}

	tests := []struct {
		name    string
		inputs  map[string]Tensor
		wantErr bool
	}{
		{
			name: "exact match",
			inputs: map[string]Tensor{
				inputIDsName:      tensor,
				attentionMaskName: tensor,
				tokenTypeIDsName:  tensor,
			},
		},
		{
			name:    "empty",
			inputs:  nil,
			wantErr: true,
		},
		{
			name: "missing one",
			inputs: map[string]Tensor{
				inputIDsName:      tensor,
				attentionMaskName: tensor,
			},
			wantErr: true,
		},
		{
			name: "unexpected extra",
			inputs: map[string]Tensor{
				inputIDsName:      tensor,
				attentionMaskName: tensor,
				tokenTypeIDsName:  tensor,
				"position_ids":    tensor,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkInputNames(tt.inputs, required)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidArgument) {
					t.Fatalf("error = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckWantedOutputs(t *testing.T) {
	valid := []string{"last_hidden_state", "pooler_output"}

	if err := checkWantedOutputs([]string{"last_hidden_state"}, valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := checkWantedOutputs([]string{"logits"}, valid)
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestResolveDims(t *testing.T) {
	tests := []struct {
		name     string
		declared []int64
		want     []int64
	}{
		{"all dynamic", []int64{-1, -1, 384}, []int64{1, 7, 384}},
		{"fixed", []int64{1, 512, 384}, []int64{1, 512, 384}},
		{"rank 2", []int64{-1, 384}, []int64{1, 384}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDims(tt.declared, 1, 7)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("dim[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveDimsCopies(t *testing.T) {
	declared := []int64{-1, -1, 384}
	_ = resolveDims(declared, 1, 7)
	if declared[0] != -1 || declared[1] != -1 {
		t.Error("resolveDims mutated the declared dims")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	skipWithoutModel(t)

	sess, err := NewSession(SessionConfig{ModelPath: testModelPath})
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	defer sess.Close()

	if sess.HiddenDim() <= 0 {
		t.Fatalf("HiddenDim() = %d, want > 0", sess.HiddenDim())
	}

	ids := []int64{0, 100, 3}
	outputs, err := sess.Run(context.Background(), BuildTensors(ids).inputs(),
		[]string{HiddenStateOutput})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	hidden, ok := outputs[HiddenStateOutput]
	if !ok {
		t.Fatalf("missing output %s", HiddenStateOutput)
	}
	if len(hidden.Shape) != 3 {
		t.Fatalf("hidden shape = %v, want rank 3", hidden.Shape)
	}
	if hidden.Shape[1] != int64(len(ids)) {
		t.Errorf("sequence dim = %d, want %d", hidden.Shape[1], len(ids))
	}
}
