package embedder

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// inferJob is one unit of work for the session's worker pool.
type inferJob struct {
	inputs map[string]Tensor
	wanted []string
	result chan inferResult
}

type inferResult struct {
	outputs map[string]OutputTensor
	err     error
}

// startWorkers launches n goroutines draining the job queue. Each worker
// issues Run calls against the shared ONNX session, which tolerates
// concurrent invocation; no per-call mutable state lives on the session.
func (s *Session) startWorkers(n int) {
	s.workers.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer s.workers.Done()
			for job := range s.jobs {
				outputs, err := s.runOnce(job.inputs, job.wanted)
				job.result <- inferResult{outputs: outputs, err: err}
			}
		}()
	}
}

// runOnce executes a single inference call synchronously on the calling
// worker. Input tensors are created in the session's declared order; output
// tensors are allocated from the model's declared dimensions with dynamic
// axes resolved from the input shape.
func (s *Session) runOnce(inputs map[string]Tensor, wanted []string) (map[string]OutputTensor, error) {
	batch, seq := int64(1), int64(0)
	if t, ok := inputs[s.inputNames[0]]; ok && len(t.Shape) == 2 {
		batch, seq = t.Shape[0], t.Shape[1]
	}

	inValues := make([]ort.Value, 0, len(s.inputNames))
	defer func() {
		for _, v := range inValues {
			v.Destroy()
		}
	}()
	for _, name := range s.inputNames {
		in := inputs[name]
		t, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", name, err)
		}
		inValues = append(inValues, t)
	}

	outValues := make([]ort.Value, 0, len(s.outputNames))
	outTensors := make([]*ort.Tensor[float32], 0, len(s.outputNames))
	defer func() {
		for _, v := range outValues {
			v.Destroy()
		}
	}()
	outShapes := make([][]int64, 0, len(s.outputNames))
	for _, name := range s.outputNames {
		dims := resolveDims(s.outputDims[name], batch, seq)
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(dims...))
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s output tensor: %w", name, err)
		}
		outValues = append(outValues, t)
		outTensors = append(outTensors, t)
		outShapes = append(outShapes, dims)
	}

	if err := s.session.Run(inValues, outValues); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	wantedSet := make(map[string]bool, len(wanted))
	for _, name := range wanted {
		wantedSet[name] = true
	}

	// Copy requested data out before the tensors are destroyed.
	outputs := make(map[string]OutputTensor, len(wanted))
	for i, name := range s.outputNames {
		if !wantedSet[name] {
			continue
		}
		src := outTensors[i].GetData()
		data := make([]float32, len(src))
		copy(data, src)
		shape := make([]int64, len(outShapes[i]))
		copy(shape, outShapes[i])
		outputs[name] = OutputTensor{Shape: shape, Data: data}
	}
	return outputs, nil
}

// resolveDims substitutes the model's dynamic axes (non-positive dims) with
// the batch and sequence lengths of the current call.
func resolveDims(declared []int64, batch, seq int64) []int64 {
	dims := make([]int64, len(declared))
	copy(dims, declared)
	if len(dims) > 0 && dims[0] <= 0 {
		dims[0] = batch
	}
	if len(dims) > 1 && dims[1] <= 0 {
		dims[1] = seq
	}
	return dims
}
