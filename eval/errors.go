package eval

import "errors"

var (
	// ErrInvalidItem indicates a dataset item failed validation.
	ErrInvalidItem = errors.New("invalid evaluation item")

	// ErrEmptyDataset indicates a dataset with no items.
	ErrEmptyDataset = errors.New("evaluation dataset is empty")

	// ErrAnswererRequired is returned when no answer pipeline is provided.
	ErrAnswererRequired = errors.New("answerer is required")

	// ErrInvalidAblation indicates an unusable ablation config set.
	ErrInvalidAblation = errors.New("invalid ablation config")
)
