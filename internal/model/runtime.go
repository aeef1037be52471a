package model

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"github.com/Brownie44l1/seascape/internal/classify"
	"github.com/Brownie44l1/seascape/internal/log"
)

// Runtime opens ONNX Runtime sessions for one model config. The runtime
// environment is shared by the process; sessions are not.
type Runtime struct {
	Config      *Config
	outputShape ort.Shape
}

var envMu sync.Mutex

// NewRuntime initializes the ONNX Runtime environment, if needed, and checks
// that the model's input and output match the config. libPath overrides the
// shared library location when non-empty.
func NewRuntime(cfg *Config, libPath string) (*Runtime, error) {
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "inspect %s: %v", cfg.ModelPath, err)
	}

	outputShape, err := checkIO(cfg, inputs, outputs)
	if err != nil {
		return nil, err
	}

	log.Info("model ready",
		"path", cfg.ModelPath,
		"classes", cfg.Classes,
		"input_shape", cfg.InputShape,
		"output_shape", outputShape,
	)

	return &Runtime{Config: cfg, outputShape: outputShape}, nil
}

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(classify.ErrModelLoad, "initialize ONNX environment: %v", err)
	}
	return nil
}

// checkIO matches the configured input and output against the model's
// declared tensors and returns the output shape to allocate.
func checkIO(cfg *Config, inputs, outputs []ort.InputOutputInfo) (ort.Shape, error) {
	input := findInfo(inputs, cfg.InputName)
	if input == nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "model %s has no input named %q", cfg.ModelPath, cfg.InputName)
	}
	want := ort.NewShape(cfg.InputShape...)
	if n := concreteShape(input.Dimensions).FlattenedSize(); n != want.FlattenedSize() {
		return nil, errors.Wrapf(classify.ErrModelLoad, "input %q %v holds %d values, input_shape %v holds %d",
			cfg.InputName, input.Dimensions, n, cfg.InputShape, want.FlattenedSize())
	}

	output := findInfo(outputs, cfg.OutputName)
	if output == nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "model %s has no output named %q", cfg.ModelPath, cfg.OutputName)
	}
	outputShape := concreteShape(output.Dimensions)
	if n := outputShape.FlattenedSize(); n != int64(len(cfg.Classes)) {
		return nil, errors.Wrapf(classify.ErrModelOutputMismatch, "output %q has %d values for %d classes",
			cfg.OutputName, n, len(cfg.Classes))
	}
	return outputShape, nil
}

func findInfo(infos []ort.InputOutputInfo, name string) *ort.InputOutputInfo {
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i]
		}
	}
	return nil
}

// concreteShape replaces dynamic (negative) dimensions with 1, so a batch axis
// declared as -1 holds a single image.
func concreteShape(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d < 1 {
			d = 1
		}
		out[i] = d
	}
	return out
}

// Acquire creates a new session with its own tensors. The caller owns the
// returned handle and must Close it.
func (r *Runtime) Acquire(ctx context.Context) (classify.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(r.Config.InputShape...))
	if err != nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "create input tensor: %v", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](r.outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrapf(classify.ErrModelLoad, "create output tensor: %v", err)
	}

	session, err := ort.NewAdvancedSession(r.Config.ModelPath,
		[]string{r.Config.InputName}, []string{r.Config.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(classify.ErrModelLoad, "create ONNX session: %v", err)
	}

	return &handle{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Close tears down the ONNX Runtime environment. Handles must be closed first.
func (r *Runtime) Close() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

type handle struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	closed       bool
}

func (h *handle) Infer(ctx context.Context, t classify.Tensor) ([]float32, error) {
	if h.closed {
		return nil, errors.New("model handle is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := h.inputTensor.GetData()
	if len(in) != len(t.Data) {
		return nil, errors.Wrapf(classify.ErrInvalidInput, "model input holds %d values, tensor has %d",
			len(in), len(t.Data))
	}
	copy(in, t.Data)

	if err := h.session.Run(); err != nil {
		return nil, err
	}

	out := h.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return multierr.Combine(
		h.session.Destroy(),
		h.inputTensor.Destroy(),
		h.outputTensor.Destroy(),
	)
}
