// Package config provides loading and validation of experiment logging
// configuration for explog. It defines a single ExperimentLogConfig structure
// describing how a training run logs validation signals: how often logging
// happens, which evaluator produces derived signals, which logger backends
// record them, and which metrics the network tester computes.
//
// The configuration is a one-shot, read-only artifact: it is parsed and
// validated once at process start and may then be shared freely by reference.
// Nothing in this package mutates a loaded configuration.
//
// Example usage:
//
//	cfg, err := config.Load("log_params.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, spec := range cfg.Loggers {
//	    fmt.Println(spec.Operator, len(spec.Arguments.LogDicts))
//	}
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expkit/explog/pkg/errors"
)

// LogType is the rendering type for a logged signal.
type LogType string

const (
	// LogTypeUnspecified means the entry carries no rendering type. The
	// loader never substitutes a default; what an absent type means is up
	// to the backend consuming the entry.
	LogTypeUnspecified LogType = ""
	// LogTypeScalar renders the signal as a scalar time series
	LogTypeScalar LogType = "scalar"
	// LogTypeImage renders the signal as an image
	LogTypeImage LogType = "image"
	// LogTypeHistogram renders the signal as a histogram
	LogTypeHistogram LogType = "histogram"
)

// Valid reports whether the log type is one of the recognized rendering
// types. The unspecified (absent) type is not considered valid here; callers
// that accept absence should check for LogTypeUnspecified first.
func (t LogType) Valid() bool {
	switch t {
	case LogTypeScalar, LogTypeImage, LogTypeHistogram:
		return true
	}
	return false
}

// LogTypes lists the recognized rendering types in stable order.
func LogTypes() []LogType {
	return []LogType{LogTypeScalar, LogTypeImage, LogTypeHistogram}
}

// ExperimentLogConfig is the root configuration object. All fields are
// required in the source document; the loader never invents defaults for
// missing fields.
type ExperimentLogConfig struct {
	// ValLogFrequency is how often, in validation steps, logging occurs
	ValLogFrequency int `yaml:"val_log_frequency" json:"val_log_frequency"`

	// Evaluator names the evaluator operator producing derived signals
	Evaluator OperatorRef `yaml:"evaluator" json:"evaluator"`

	// Loggers are the logger backends, invoked in document order.
	// Duplicate entries are legal.
	Loggers []LoggerSpec `yaml:"loggers" json:"loggers"`

	// NetworkTester configures the evaluation metrics computed at test time
	NetworkTester NetworkTesterSpec `yaml:"network_tester" json:"network_tester"`
}

// OperatorRef names an externally resolved operator implementation.
// The loader only checks that the name is syntactically well formed;
// resolving it to an implementation is the operator registry's job.
type OperatorRef struct {
	// Operator is the non-empty operator identifier
	Operator string `yaml:"operator" json:"operator"`
}

// LoggerSpec selects one logger backend and the signals it records.
type LoggerSpec struct {
	// Operator is the backend operator identifier (e.g. "TensorboardLogger")
	Operator string `yaml:"operator" json:"operator"`
	// Arguments carries the backend's signal bindings
	Arguments LoggerArguments `yaml:"arguments" json:"arguments"`
}

// LoggerArguments holds the ordered signal bindings for one backend.
type LoggerArguments struct {
	// LogDicts are the signal-to-output bindings, in document order.
	// May be empty.
	LogDicts []LogEntry `yaml:"log_dicts" json:"log_dicts"`
}

// LogEntry binds one runtime variable to a display name and rendering type.
type LogEntry struct {
	// LogName is the display name used in the backend's output.
	// Names need not be unique across entries.
	LogName string `yaml:"log_name" json:"log_name"`
	// LogVar is the runtime variable or tensor read at logging time
	LogVar string `yaml:"log_var" json:"log_var"`
	// LogType is the optional rendering type. Backends that only log
	// scalars omit it; the loader preserves the absence.
	LogType LogType `yaml:"log_type,omitempty" json:"log_type,omitempty"`
	// LogKwargs are optional backend-specific rendering parameters.
	// Values are always flat scalars, never nested structures.
	LogKwargs map[string]interface{} `yaml:"log_kwargs,omitempty" json:"log_kwargs,omitempty"`
}

// NetworkTesterSpec configures the network tester component.
type NetworkTesterSpec struct {
	// Metrics are the metric identifiers computed during evaluation.
	// May be empty.
	Metrics []string `yaml:"metrics" json:"metrics"`
}

// ShouldLog reports whether validation logging occurs at the given step.
// Step numbers are 1-based as in the training loop.
func (c *ExperimentLogConfig) ShouldLog(step int64) bool {
	if c.ValLogFrequency < 1 {
		return false
	}
	return step%int64(c.ValLogFrequency) == 0
}

// Validate validates a configuration constructed in code. Configurations
// produced by Load are already validated; this exists for consumers that
// build an ExperimentLogConfig programmatically. It applies the same value
// checks as the loader but cannot distinguish absent fields from zero
// values, so absent required fields surface as invalid values here.
func (c *ExperimentLogConfig) Validate() error {
	if c.ValLogFrequency < 1 {
		return invalidValue("val_log_frequency", c.ValLogFrequency, "must be an integer >= 1")
	}
	if c.Evaluator.Operator == "" {
		return invalidValue("evaluator.operator", c.Evaluator.Operator, "must be a non-empty string")
	}
	for i, spec := range c.Loggers {
		if spec.Operator == "" {
			return invalidValue(fmt.Sprintf("loggers[%d].operator", i), spec.Operator, "must be a non-empty string")
		}
		for j, entry := range spec.Arguments.LogDicts {
			path := fmt.Sprintf("loggers[%d].arguments.log_dicts[%d]", i, j)
			if entry.LogName == "" {
				return invalidValue(path+".log_name", entry.LogName, "must be a non-empty string")
			}
			if entry.LogVar == "" {
				return invalidValue(path+".log_var", entry.LogVar, "must be a non-empty string")
			}
			if entry.LogType != LogTypeUnspecified && !entry.LogType.Valid() {
				return invalidEnum(path+".log_type", string(entry.LogType), i, j)
			}
			if err := validateKwargs(entry.LogKwargs, spec.Operator, path+".log_kwargs"); err != nil {
				return err
			}
		}
	}
	for i, metric := range c.NetworkTester.Metrics {
		if metric == "" {
			return invalidValue(fmt.Sprintf("network_tester.metrics[%d]", i), metric, "must be a non-empty string")
		}
	}
	return nil
}

// Operators returns every operator identifier the configuration names, the
// evaluator first, then logger backends in document order, deduplicated.
func (c *ExperimentLogConfig) Operators() []string {
	seen := make(map[string]bool, len(c.Loggers)+1)
	ops := make([]string, 0, len(c.Loggers)+1)
	for _, op := range append([]string{c.Evaluator.Operator}, c.loggerOperators()...) {
		if op == "" || seen[op] {
			continue
		}
		seen[op] = true
		ops = append(ops, op)
	}
	return ops
}

func (c *ExperimentLogConfig) loggerOperators() []string {
	ops := make([]string, 0, len(c.Loggers))
	for _, spec := range c.Loggers {
		ops = append(ops, spec.Operator)
	}
	return ops
}

// Variables returns the distinct runtime variable names the configuration
// reads, sorted for stable output.
func (c *ExperimentLogConfig) Variables() []string {
	seen := make(map[string]bool)
	for _, spec := range c.Loggers {
		for _, entry := range spec.Arguments.LogDicts {
			seen[entry.LogVar] = true
		}
	}
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// Summary returns a human-readable, multi-line description of the
// configuration, used by the CLI after a successful validation.
func (c *ExperimentLogConfig) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "val_log_frequency: %d\n", c.ValLogFrequency)
	fmt.Fprintf(&b, "evaluator: %s\n", c.Evaluator.Operator)
	fmt.Fprintf(&b, "loggers: %d\n", len(c.Loggers))
	for i, spec := range c.Loggers {
		fmt.Fprintf(&b, "  [%d] %s (%d entries)\n", i, spec.Operator, len(spec.Arguments.LogDicts))
	}
	fmt.Fprintf(&b, "network_tester metrics: %s\n", strings.Join(c.NetworkTester.Metrics, ", "))
	return b.String()
}

// Error constructors shared by the loader and struct-level validation.

func missingField(path string) error {
	return errors.Newf(errors.ErrorTypeMissingField, "required field %s is missing", path).
		WithDetail("field", path)
}

func invalidValue(path string, value interface{}, reason string) error {
	return errors.Newf(errors.ErrorTypeInvalidValue, "field %s: %s (got %v)", path, reason, value).
		WithDetail("field", path).
		WithDetail("value", value)
}

func invalidEnum(path, value string, loggerIndex, entryIndex int) error {
	return errors.Newf(errors.ErrorTypeInvalidEnum,
		"field %s: unrecognized log_type %q (logger %d, entry %d), want one of scalar, image, histogram",
		path, value, loggerIndex, entryIndex).
		WithDetail("field", path).
		WithDetail("value", value).
		WithDetail("logger_index", loggerIndex).
		WithDetail("entry_index", entryIndex)
}
