// Package operator defines the interfaces between a loaded experiment
// logging configuration and the training framework's runtime components.
// The loader never calls any of these itself; they are the contract the
// registry resolves operator names against.
package operator

import (
	"context"

	"github.com/expkit/explog/pkg/config"
)

// Kind is the runtime rendering kind of a logged value, matching the
// rendering types the configuration recognizes.
type Kind string

const (
	KindScalar    Kind = "scalar"
	KindImage     Kind = "image"
	KindHistogram Kind = "histogram"
)

// Value is one runtime signal read at logging time. Scalar values carry a
// single number; image and histogram values carry a flat tensor with its
// shape.
type Value struct {
	Kind   Kind
	Scalar float64
	Data   []float64
	Shape  []int
}

// VariableStore resolves runtime variable names (log_var) to live
// training-step values.
type VariableStore interface {
	// Lookup returns the current value of a named variable. The second
	// return value reports whether the variable exists.
	Lookup(name string) (Value, bool)
}

// Evaluator computes derived signals (probabilities, accuracy, dice, ...)
// from a training step and exposes them through a VariableStore.
type Evaluator interface {
	// Name returns the operator identifier the evaluator was resolved by
	Name() string
	// Store returns the evaluator's derived signals
	Store() VariableStore
	// Close releases evaluator resources
	Close(ctx context.Context) error
}

// Backend is a logger backend recording configured signals at each
// validation step.
type Backend interface {
	// Name returns the operator identifier the backend was resolved by
	Name() string
	// Log records every configured entry at the given step, reading
	// variables from the store
	Log(ctx context.Context, step int64, vars VariableStore) error
	// Close flushes and releases backend resources
	Close(ctx context.Context) error
}

// Metric computes a single evaluation metric over one batch of per-sample
// values, as used by the network tester.
type Metric func(batch []float64) float64

// EvaluatorFactory creates an evaluator from its configuration reference.
type EvaluatorFactory func(ref *config.OperatorRef) (Evaluator, error)

// BackendFactory creates a logger backend from its configuration spec.
type BackendFactory func(spec *config.LoggerSpec) (Backend, error)
