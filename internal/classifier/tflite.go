package classifier

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
	"github.com/timmy/cropguard/internal/logger"
)

// TFLiteClassifier runs a TensorFlow Lite model in process.
// A single interpreter is shared, so Predict calls are serialized.
type TFLiteClassifier struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	outputSize  int
}

// NewTFLiteClassifier loads the model at path and allocates its tensors.
// threads <= 0 uses half the available CPUs.
func NewTFLiteClassifier(path string, threads int) (*TFLiteClassifier, error) {
	modelData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model %s", path)
	}

	if threads <= 0 {
		threads = max(1, runtime.NumCPU()/2)
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		logger.Error("TFLite error: %s", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter for %s", path)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed for %s", path)
	}

	out := interpreter.GetOutputTensor(0)
	if out == nil {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("model %s has no output tensor", path)
	}

	return &TFLiteClassifier{
		model:       model,
		interpreter: interpreter,
		outputSize:  out.Dim(out.NumDims() - 1),
	}, nil
}

// OutputSize is the length of the model's probability vector.
func (c *TFLiteClassifier) OutputSize() int {
	return c.outputSize
}

// Predict copies input into the interpreter, invokes it and returns the output vector.
func (c *TFLiteClassifier) Predict(ctx context.Context, input *Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.interpreter.GetInputTensor(0)
	if in == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	dst := in.Float32s()
	if len(dst) != len(input.Data) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	out := c.interpreter.GetOutputTensor(0)
	probs := make([]float32, out.Dim(out.NumDims()-1))
	copy(probs, out.Float32s())
	return probs, nil
}

// Close frees the interpreter and model.
func (c *TFLiteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
