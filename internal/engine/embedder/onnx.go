package embedder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/quarry-ml/sonar/internal/model"
)

// Required encoder input names, in session order.
const (
	inputIDsName      = "input_ids"
	attentionMaskName = "attention_mask"
	tokenTypeIDsName  = "token_type_ids"
)

// HiddenStateOutput is the encoder output the pipeline consumes,
// shape [batch, sequence, hidden].
const HiddenStateOutput = "last_hidden_state"

// Session defaults. The thread counts are performance knobs, not
// correctness requirements.
const (
	defaultIntraOpThreads = 20
	defaultInterOpThreads = 40
	defaultWorkers        = 4
)

// Tensor is an integer input tensor with an explicit shape.
type Tensor struct {
	Shape []int64
	Data  []int64
}

// OutputTensor is a float output tensor with an explicit shape.
type OutputTensor struct {
	Shape []int64
	Data  []float32
}

// Runner is the narrow capability the embedding pipeline needs from an
// inference session: named inputs in, named tensors out.
type Runner interface {
	Run(ctx context.Context, inputs map[string]Tensor, wanted []string) (map[string]OutputTensor, error)
	HiddenDim() int
	Close() error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	ModelPath string
	// LibraryPath locates the ONNX Runtime shared library. Defaults to
	// libonnxruntime.so alongside the model file.
	LibraryPath    string
	IntraOpThreads int
	InterOpThreads int
	// Workers is the number of goroutines draining the inference job queue.
	Workers int
}

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Session owns a single long-lived inference session bound to one on-disk
// model artifact. Inference is executed by a fixed pool of workers; the
// session itself is shared, read-mostly state and tolerates concurrent Run
// calls.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	outputDims  map[string][]int64
	hiddenDim   int64

	jobs      chan *inferJob
	workers   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewSession loads the encoder model and creates an inference session,
// validating the model's declared input and output tensors. A missing model
// file is a fatal startup condition.
func NewSession(cfg SessionConfig) (*Session, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx: %w: %v", model.ErrModelArtifactMissing, err)
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputNames, err := validateModelInputs(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs: %w", model.ErrInternal)
	}
	outputNames := make([]string, len(outputs))
	outputDims := make(map[string][]int64, len(outputs))
	for i, out := range outputs {
		outputNames[i] = out.Name
		outputDims[out.Name] = out.Dimensions
	}

	hiddenDims, ok := outputDims[HiddenStateOutput]
	if !ok {
		hiddenDims = outputs[0].Dimensions
	}
	if len(hiddenDims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D hidden-state output, got %v: %w",
			hiddenDims, model.ErrInternal)
	}
	hiddenDim := hiddenDims[2]

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	intra, inter := cfg.IntraOpThreads, cfg.InterOpThreads
	if intra <= 0 {
		intra = defaultIntraOpThreads
	}
	if inter <= 0 {
		inter = defaultInterOpThreads
	}
	opts.SetIntraOpNumThreads(intra)
	opts.SetInterOpNumThreads(inter)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	s := &Session{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
		outputDims:  outputDims,
		hiddenDim:   hiddenDim,
		jobs:        make(chan *inferJob),
	}
	s.startWorkers(workers)
	return s, nil
}

// validateModelInputs checks that the model declares the expected encoder
// inputs and returns them in the canonical order.
func validateModelInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	nameSet := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		nameSet[inp.Name] = true
	}
	required := []string{inputIDsName, attentionMaskName, tokenTypeIDsName}
	for _, name := range required {
		if !nameSet[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q: %w",
				name, model.ErrInternal)
		}
	}
	return required, nil
}

// HiddenDim returns the encoder's hidden size (the embedding dimensionality).
func (s *Session) HiddenDim() int {
	return int(s.hiddenDim)
}

// Run executes one inference call on the worker pool. The caller blocks on
// the result channel, not on the compute itself, and the wait honors ctx
// cancellation. Returns exactly the wanted outputs, or all outputs when
// wanted is empty.
func (s *Session) Run(ctx context.Context, inputs map[string]Tensor, wanted []string) (map[string]OutputTensor, error) {
	if err := checkInputNames(inputs, s.inputNames); err != nil {
		return nil, err
	}
	if len(wanted) == 0 {
		wanted = s.outputNames
	} else if err := checkWantedOutputs(wanted, s.outputNames); err != nil {
		return nil, err
	}

	job := &inferJob{inputs: inputs, wanted: wanted, result: make(chan inferResult, 1)}
	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.result:
		if res.err != nil {
			return nil, res.err
		}
		// Consistency assertion against the runtime, not an input error.
		if len(res.outputs) != len(wanted) {
			return nil, fmt.Errorf("onnx: runtime returned %d outputs, requested %d: %w",
				len(res.outputs), len(wanted), model.ErrInternal)
		}
		return res.outputs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkInputNames verifies that the provided input key set matches the
// session's declared required inputs exactly, reporting missing and
// unexpected names together.
func checkInputNames(inputs map[string]Tensor, required []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("onnx: no inputs provided, required inputs are %v: %w",
			required, model.ErrInvalidArgument)
	}

	var missing, extra []string
	for _, name := range required {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	req := make(map[string]bool, len(required))
	for _, name := range required {
		req[name] = true
	}
	for name := range inputs {
		if !req[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %v", missing))
	}
	if len(extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %v", extra))
	}
	return fmt.Errorf("onnx: input names %s, valid inputs are %v: %w",
		strings.Join(parts, ", "), required, model.ErrInvalidArgument)
}

// checkWantedOutputs verifies that every requested output is one the session
// actually produces.
func checkWantedOutputs(wanted, valid []string) error {
	validSet := make(map[string]bool, len(valid))
	for _, name := range valid {
		validSet[name] = true
	}
	var unknown []string
	for _, name := range wanted {
		if !validSet[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("onnx: unknown outputs %v, valid outputs are %v: %w",
		unknown, valid, model.ErrInvalidArgument)
}

// Close drains the worker pool and releases ONNX Runtime resources.
// Close must not race with in-flight Run calls; callers stop issuing work
// before closing, the same contract the rest of the process observes for
// the session lifetime.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.jobs)
		s.workers.Wait()
		s.closeErr = s.session.Destroy()
	})
	return s.closeErr
}
