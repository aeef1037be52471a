// Package classify holds the image preprocessing, the argmax decision and the
// pipeline that ties them to a model handle.
package classify

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/seascape/internal/log"
)

// Model is a loaded classifier handle. It is owned by a single classification
// and must be closed when that classification ends.
type Model interface {
	// Infer returns one score per label, in the model's output order.
	Infer(ctx context.Context, t Tensor) ([]float32, error)
	Close() error
}

// Loader hands out a fresh Model for every call.
type Loader interface {
	Acquire(ctx context.Context) (Model, error)
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Class       string             `json:"class"`
	Confidence  float32            `json:"confidence"`
	Index       int                `json:"index"`
	Scores      []float32          `json:"scores"`
	Predictions map[string]float32 `json:"predictions"`
}

// Classifier runs images through preprocessing, a scoped model handle and Decide.
type Classifier struct {
	Loader Loader
	// Labels in model output order.
	Labels []string
	// Size is the side of the square model input.
	Size   int
	Filter Filter
}

// Classify fits img to the model size with the configured filter and classifies it.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (*Prediction, error) {
	fitted, err := Fit(img, c.Size, c.Filter)
	if err != nil {
		return nil, err
	}
	t, err := Preprocess(fitted, c.Size)
	if err != nil {
		return nil, err
	}
	return c.ClassifyTensor(ctx, t)
}

// ClassifyTensor runs an already preprocessed tensor through the model.
func (c *Classifier) ClassifyTensor(ctx context.Context, t Tensor) (*Prediction, error) {
	if t.Size != c.Size || len(t.Data) != Len(c.Size) {
		return nil, errors.Wrapf(ErrInvalidInput, "tensor %dx%d with %d values, model wants %dx%d",
			t.Size, t.Size, len(t.Data), c.Size, c.Size)
	}

	start := time.Now()
	scores, err := c.infer(ctx, t)
	if err != nil {
		return nil, err
	}

	idx, err := argmax(scores, c.Labels)
	if err != nil {
		return nil, err
	}

	predictions := make(map[string]float32, len(c.Labels))
	for i, label := range c.Labels {
		predictions[label] = scores[i]
	}

	log.Debug("classified",
		"class", c.Labels[idx],
		"index", idx,
		"confidence", scores[idx],
		"elapsed", time.Since(start),
	)

	return &Prediction{
		Class:       c.Labels[idx],
		Confidence:  scores[idx],
		Index:       idx,
		Scores:      scores,
		Predictions: predictions,
	}, nil
}

// infer acquires a model handle, runs it once and releases it on every path.
func (c *Classifier) infer(ctx context.Context, t Tensor) (scores []float32, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := c.Loader.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			log.Warn("failed to release model handle", "error", cerr)
			if err == nil {
				err = errors.Wrap(cerr, "release model handle")
			}
		}
	}()

	scores, err = m.Infer(ctx, t)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	if len(scores) != len(c.Labels) {
		return nil, errors.Wrapf(ErrModelOutputMismatch, "model returned %d scores for %d labels",
			len(scores), len(c.Labels))
	}
	return scores, nil
}
