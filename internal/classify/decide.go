package classify

import "github.com/pkg/errors"

// Decide returns the label with the highest score. Ties resolve to the
// earliest index.
func Decide(scores []float32, labels []string) (string, float32, error) {
	idx, err := argmax(scores, labels)
	if err != nil {
		return "", 0, err
	}
	return labels[idx], scores[idx], nil
}

func argmax(scores []float32, labels []string) (int, error) {
	if len(scores) == 0 || len(labels) == 0 {
		return 0, errors.Wrapf(ErrEmptyInput, "%d scores, %d labels", len(scores), len(labels))
	}
	if len(scores) != len(labels) {
		return 0, errors.Wrapf(ErrModelOutputMismatch, "%d scores for %d labels", len(scores), len(labels))
	}

	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return maxIdx, nil
}
