package classify

import "github.com/pkg/errors"

// Failure classes surfaced to the host. Call sites wrap these with context,
// so match them with errors.Is.
var (
	// ErrInvalidInput is returned for nil, zero-sized or malformed images and tensors.
	ErrInvalidInput = errors.New("classify: invalid input")

	// ErrModelLoad is returned when the model artifact is missing or cannot be opened.
	ErrModelLoad = errors.New("classify: model load failure")

	// ErrModelOutputMismatch is returned when the model produces a confidence
	// vector whose length differs from the label count.
	ErrModelOutputMismatch = errors.New("classify: model output mismatch")

	// ErrEmptyInput is returned when the decision procedure gets no scores or labels.
	ErrEmptyInput = errors.New("classify: empty input")
)
