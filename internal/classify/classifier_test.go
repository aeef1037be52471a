package classify

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	scores   []float32
	err      error
	closeErr error
	closed   int
	got      Tensor
}

func (m *fakeModel) Infer(_ context.Context, t Tensor) ([]float32, error) {
	m.got = t
	if m.err != nil {
		return nil, m.err
	}
	return m.scores, nil
}

func (m *fakeModel) Close() error {
	m.closed++
	return m.closeErr
}

type fakeLoader struct {
	model    *fakeModel
	err      error
	acquired int
}

func (l *fakeLoader) Acquire(context.Context) (Model, error) {
	l.acquired++
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func newClassifier(m *fakeModel) (*Classifier, *fakeLoader) {
	l := &fakeLoader{model: m}
	return &Classifier{Loader: l, Labels: seaMountain, Size: 32, Filter: FilterNearest}, l
}

func TestClassify(t *testing.T) {
	m := &fakeModel{scores: []float32{0.2, 0.9}}
	c, l := newClassifier(m)

	pred, err := c.Classify(context.Background(), uniform(120, 80, color.NRGBA{R: 30, G: 60, B: 90, A: 255}))
	require.NoError(t, err)

	assert.Equal(t, "Mountain", pred.Class)
	assert.Equal(t, float32(0.9), pred.Confidence)
	assert.Equal(t, 1, pred.Index)
	assert.Equal(t, []float32{0.2, 0.9}, pred.Scores)
	assert.Equal(t, map[string]float32{"Sea": 0.2, "Mountain": 0.9}, pred.Predictions)

	assert.Equal(t, 1, l.acquired)
	assert.Equal(t, 1, m.closed)
	assert.Len(t, m.got.Data, Len(32))
	assert.Equal(t, float32(30)/255.0, m.got.Data[0])
}

func TestClassifyReleasesHandleOnInferenceFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("session run failed")}
	c, _ := newClassifier(m)

	_, err := c.Classify(context.Background(), uniform(32, 32, color.NRGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session run failed")
	assert.Equal(t, 1, m.closed)
}

func TestClassifyOutputMismatch(t *testing.T) {
	m := &fakeModel{scores: []float32{0.1, 0.2, 0.7}}
	c, _ := newClassifier(m)

	_, err := c.Classify(context.Background(), uniform(32, 32, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrModelOutputMismatch)
	assert.Equal(t, 1, m.closed)
}

func TestClassifyLoadFailure(t *testing.T) {
	c, l := newClassifier(nil)
	l.err = ErrModelLoad

	_, err := c.Classify(context.Background(), uniform(32, 32, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestClassifyReleaseError(t *testing.T) {
	m := &fakeModel{scores: []float32{0.6, 0.4}, closeErr: errors.New("destroy failed")}
	c, _ := newClassifier(m)

	_, err := c.Classify(context.Background(), uniform(32, 32, color.NRGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destroy failed")
}

func TestClassifyCanceledContext(t *testing.T) {
	m := &fakeModel{scores: []float32{0.6, 0.4}}
	c, l := newClassifier(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, uniform(32, 32, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, l.acquired)
}

func TestClassifyInvalidImage(t *testing.T) {
	c, l := newClassifier(&fakeModel{})

	_, err := c.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, l.acquired)
}

func TestClassifyTensorWrongSize(t *testing.T) {
	c, l := newClassifier(&fakeModel{scores: []float32{0.5, 0.5}})

	_, err := c.ClassifyTensor(context.Background(), Tensor{Size: 2, Data: make([]float32, Len(2))})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, l.acquired)
}

func TestClassifyTensorTie(t *testing.T) {
	m := &fakeModel{scores: []float32{0.5, 0.5}}
	c, _ := newClassifier(m)

	pred, err := c.ClassifyTensor(context.Background(), Tensor{Size: 32, Data: make([]float32, Len(32))})
	require.NoError(t, err)
	assert.Equal(t, "Sea", pred.Class)
	assert.Equal(t, float32(0.5), pred.Confidence)
}
