package model

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/seascape/internal/classify"
)

// Config binds a model artifact to the labels of its output positions.
// Both are validated together when the config is loaded.
type Config struct {
	ModelPath  string   `json:"model_path"`
	Classes    []string `json:"classes"`
	ImageSize  int      `json:"image_size"`
	InputName  string   `json:"input_name,omitempty"`
	OutputName string   `json:"output_name,omitempty"`
	InputShape []int64  `json:"input_shape,omitempty"`
	Resample   string   `json:"resample,omitempty"`
}

// LoadConfig reads a JSON model config. A relative model_path is resolved
// against the directory of the config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "read config %s: %v", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(classify.ErrModelLoad, "parse config %s: %v", path, err)
	}
	if cfg.ModelPath != "" && !filepath.IsAbs(cfg.ModelPath) {
		cfg.ModelPath = filepath.Join(filepath.Dir(path), cfg.ModelPath)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.InputName == "" {
		c.InputName = "input"
	}
	if c.OutputName == "" {
		c.OutputName = "output"
	}
	if len(c.InputShape) == 0 && c.ImageSize > 0 {
		c.InputShape = []int64{1, int64(c.ImageSize), int64(c.ImageSize), classify.Channels}
	}
	if c.Resample == "" {
		c.Resample = string(classify.FilterNearest)
	}
}

// Validate checks the config without touching the model file contents.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return errors.Wrap(classify.ErrModelLoad, "model_path is required")
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return errors.Wrapf(classify.ErrModelLoad, "model file: %v", err)
	}
	if len(c.Classes) == 0 {
		return errors.Wrap(classify.ErrModelLoad, "classes must not be empty")
	}
	seen := make(map[string]bool, len(c.Classes))
	for _, name := range c.Classes {
		if name == "" {
			return errors.Wrap(classify.ErrModelLoad, "class names must not be empty")
		}
		if seen[name] {
			return errors.Wrapf(classify.ErrModelLoad, "duplicate class %q", name)
		}
		seen[name] = true
	}
	if c.ImageSize <= 0 {
		return errors.Wrapf(classify.ErrModelLoad, "image_size must be positive, got %d", c.ImageSize)
	}

	elems := int64(1)
	for _, dim := range c.InputShape {
		if dim <= 0 {
			return errors.Wrapf(classify.ErrModelLoad, "input_shape %v has non-positive dimension", c.InputShape)
		}
		elems *= dim
	}
	if elems != int64(classify.Len(c.ImageSize)) {
		return errors.Wrapf(classify.ErrModelLoad, "input_shape %v holds %d values, image_size %d needs %d",
			c.InputShape, elems, c.ImageSize, classify.Len(c.ImageSize))
	}

	if _, err := classify.ParseFilter(c.Resample); err != nil {
		return errors.Wrap(classify.ErrModelLoad, err.Error())
	}
	return nil
}

// Filter returns the configured resample filter. Call after Validate.
func (c *Config) Filter() classify.Filter {
	f, _ := classify.ParseFilter(c.Resample)
	return f
}

// PredictionRequest carries a preprocessed tensor for /predict.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// LabelsResponse describes the label order served by /labels.
type LabelsResponse struct {
	Classes   []string `json:"classes"`
	ImageSize int      `json:"image_size"`
}
