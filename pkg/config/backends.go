package config

import (
	"fmt"

	"github.com/expkit/explog/pkg/errors"
	"github.com/expkit/explog/pkg/json"
)

// Known operator identifiers. A configuration may name operators outside
// this set; the loader accepts any syntactically valid identifier and leaves
// resolution to the registry. For the operators listed here, log_kwargs are
// additionally validated against the backend's parameter set.
const (
	// EvaluatorClassification is the multi-class classification evaluator
	EvaluatorClassification = "ClassificationEvaluator"
	// EvaluatorBinaryClassification is the binary classification evaluator
	EvaluatorBinaryClassification = "BinaryClassificationEvaluator"

	// BackendTensorboard is the dashboard metrics/image logger
	BackendTensorboard = "TensorboardLogger"
	// BackendHDF5 is the HDF5 file logger
	BackendHDF5 = "HDF5Logger"
	// BackendSacred is the experiment-tracking logger
	BackendSacred = "SacredLogger"
)

// BackendCapabilities describes what a known logger backend supports.
type BackendCapabilities struct {
	// RendersTypes reports whether the backend distinguishes scalar,
	// image, and histogram renderings. Scalar-only backends record every
	// entry implicitly as a scalar.
	RendersTypes bool
	// KwargKeys are the rendering parameters the backend accepts
	KwargKeys []string
}

var knownBackends = map[string]BackendCapabilities{
	BackendTensorboard: {
		RendersTypes: true,
		KwargKeys:    []string{"max_outputs", "channel"},
	},
	BackendHDF5:   {RendersTypes: false},
	BackendSacred: {RendersTypes: false},
}

// KnownBackend returns the capabilities of a known logger backend operator.
// The second return value reports whether the operator is known.
func KnownBackend(operator string) (BackendCapabilities, bool) {
	caps, ok := knownBackends[operator]
	return caps, ok
}

// KnownEvaluator reports whether the operator names a known evaluator.
func KnownEvaluator(operator string) bool {
	return operator == EvaluatorClassification || operator == EvaluatorBinaryClassification
}

// TensorboardKwargs is the typed view of a tensorboard entry's log_kwargs.
// Unset parameters are nil.
type TensorboardKwargs struct {
	// MaxOutputs caps how many images from a batch are rendered
	MaxOutputs *int `json:"max_outputs,omitempty"`
	// Channel selects which channel of a multi-channel tensor is rendered
	Channel *int `json:"channel,omitempty"`
}

// TensorboardKwargs decodes the entry's log_kwargs into the tensorboard
// backend's typed parameter struct. Entries without kwargs yield a zero
// struct. Parameters with the wrong type fail with an invalid value error.
func (e *LogEntry) TensorboardKwargs() (*TensorboardKwargs, error) {
	kw := &TensorboardKwargs{}
	if len(e.LogKwargs) == 0 {
		return kw, nil
	}
	data, err := json.Marshal(e.LogKwargs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to re-encode log_kwargs")
	}
	if err := json.Unmarshal(data, kw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidValue, "log_kwargs do not match tensorboard parameters")
	}
	return kw, nil
}

// validateKwargs checks that log_kwargs is a flat scalar mapping and, for
// known backends, that every key and value matches the backend's parameter
// set. Unknown operators only get the flat-scalar check; their parameter
// vocabulary is defined by whatever implementation the registry resolves.
func validateKwargs(kwargs map[string]interface{}, operator, path string) error {
	for key, value := range kwargs {
		keyPath := fmt.Sprintf("%s.%s", path, key)
		if !isScalar(value) {
			return invalidValue(keyPath, value, "log_kwargs values must be flat scalars")
		}
		caps, ok := knownBackends[operator]
		if !ok {
			continue
		}
		if !containsKey(caps.KwargKeys, key) {
			return invalidValue(keyPath, value,
				fmt.Sprintf("parameter not accepted by %s", operator))
		}
		// The parameters every known backend declares are integer-valued.
		if _, err := toInt(value); err != nil {
			return invalidValue(keyPath, value, "parameter must be an integer")
		}
	}
	return nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number:
		return true
	}
	return false
}
