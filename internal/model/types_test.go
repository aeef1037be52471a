package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/seascape/internal/classify"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sea.onnx"), []byte("model"), 0o644))
	path := filepath.Join(dir, "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"model_path":"sea.onnx","classes":["Sea","Mountain"],"image_size":32}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "sea.onnx"), cfg.ModelPath)
	assert.Equal(t, []string{"Sea", "Mountain"}, cfg.Classes)
	assert.Equal(t, "input", cfg.InputName)
	assert.Equal(t, "output", cfg.OutputName)
	assert.Equal(t, []int64{1, 32, 32, 3}, cfg.InputShape)
	assert.Equal(t, classify.FilterNearest, cfg.Filter())
}

func TestLoadConfigExplicitFields(t *testing.T) {
	path := writeConfig(t, `{
		"model_path": "sea.onnx",
		"classes": ["Sea", "Mountain"],
		"image_size": 32,
		"input_name": "serving_default_input:0",
		"output_name": "StatefulPartitionedCall:0",
		"input_shape": [1, 3, 32, 32],
		"resample": "bilinear"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "serving_default_input:0", cfg.InputName)
	assert.Equal(t, []int64{1, 3, 32, 32}, cfg.InputShape)
	assert.Equal(t, classify.FilterBilinear, cfg.Filter())
}

func TestLoadConfigRejects(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"model_path":`,
		"missing model":    `{"model_path":"nope.onnx","classes":["Sea"],"image_size":32}`,
		"no model path":    `{"classes":["Sea"],"image_size":32}`,
		"no classes":       `{"model_path":"sea.onnx","classes":[],"image_size":32}`,
		"duplicate class":  `{"model_path":"sea.onnx","classes":["Sea","Sea"],"image_size":32}`,
		"empty class":      `{"model_path":"sea.onnx","classes":["Sea",""],"image_size":32}`,
		"zero size":        `{"model_path":"sea.onnx","classes":["Sea","Mountain"],"image_size":0}`,
		"shape mismatch":   `{"model_path":"sea.onnx","classes":["Sea","Mountain"],"image_size":32,"input_shape":[1,28,28,3]}`,
		"negative dim":     `{"model_path":"sea.onnx","classes":["Sea","Mountain"],"image_size":32,"input_shape":[-1,32,32,3]}`,
		"unknown resample": `{"model_path":"sea.onnx","classes":["Sea","Mountain"],"image_size":32,"resample":"cubic"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, classify.ErrModelLoad)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, classify.ErrModelLoad)
}

func TestConcreteShape(t *testing.T) {
	assert.Equal(t, ort.NewShape(1, 2), concreteShape(ort.NewShape(-1, 2)))
	assert.Equal(t, ort.NewShape(1, 32, 32, 3), concreteShape(ort.NewShape(1, 32, 32, 3)))
}
