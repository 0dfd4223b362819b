// Package registry resolves operator and metric names from an experiment
// logging configuration to registered implementations. It is the explicit
// lookup table the configuration's operator strings are matched against at
// startup: the training framework registers its evaluators, logger backends,
// and metric functions once, then Verify checks that a loaded configuration
// only names things that resolve.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/expkit/explog/pkg/config"
	"github.com/expkit/explog/pkg/errors"
	"github.com/expkit/explog/pkg/logger"
	"github.com/expkit/explog/pkg/operator"
)

// Registry manages operator and metric registration and resolution
type Registry struct {
	evaluators map[string]operator.EvaluatorFactory
	backends   map[string]operator.BackendFactory
	metrics    map[string]operator.Metric
	mu         sync.RWMutex
	logger     *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new operator registry
func NewRegistry() *Registry {
	return &Registry{
		evaluators: make(map[string]operator.EvaluatorFactory),
		backends:   make(map[string]operator.BackendFactory),
		metrics:    make(map[string]operator.Metric),
		logger:     logger.Get().With(zap.String("component", "operator_registry")),
	}
}

// RegisterEvaluator registers an evaluator factory
func (r *Registry) RegisterEvaluator(name string, factory operator.EvaluatorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.evaluators[name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "evaluator %s already registered", name)
	}

	r.evaluators[name] = factory
	r.logger.Info("evaluator registered", zap.String("name", name))
	return nil
}

// RegisterBackend registers a logger backend factory
func (r *Registry) RegisterBackend(name string, factory operator.BackendFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "backend %s already registered", name)
	}

	r.backends[name] = factory
	r.logger.Info("backend registered", zap.String("name", name))
	return nil
}

// RegisterMetric registers a metric function
func (r *Registry) RegisterMetric(name string, metric operator.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metrics[name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "metric %s already registered", name)
	}

	r.metrics[name] = metric
	r.logger.Info("metric registered", zap.String("name", name))
	return nil
}

// CreateEvaluator creates an evaluator instance for a configuration reference
func (r *Registry) CreateEvaluator(ref *config.OperatorRef) (operator.Evaluator, error) {
	r.mu.RLock()
	factory, exists := r.evaluators[ref.Operator]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "evaluator %s not found", ref.Operator).
			WithDetail("operator", ref.Operator)
	}

	eval, err := factory(ref)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create evaluator %s", ref.Operator))
	}

	return eval, nil
}

// CreateBackend creates a logger backend instance for a configuration spec
func (r *Registry) CreateBackend(spec *config.LoggerSpec) (operator.Backend, error) {
	r.mu.RLock()
	factory, exists := r.backends[spec.Operator]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "backend %s not found", spec.Operator).
			WithDetail("operator", spec.Operator)
	}

	backend, err := factory(spec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create backend %s", spec.Operator))
	}

	return backend, nil
}

// ResolveMetric resolves a metric name to its function
func (r *Registry) ResolveMetric(name string) (operator.Metric, error) {
	r.mu.RLock()
	metric, exists := r.metrics[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "metric %s not found", name).
			WithDetail("metric", name)
	}
	return metric, nil
}

// Verify checks that every operator and metric a loaded configuration names
// resolves against the registry. It reports the first unresolvable name with
// its configuration field path.
func (r *Registry) Verify(cfg *config.ExperimentLogConfig) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.evaluators[cfg.Evaluator.Operator]; !ok {
		return errors.Newf(errors.ErrorTypeNotFound, "evaluator %s is not registered", cfg.Evaluator.Operator).
			WithDetail("field", "evaluator.operator").
			WithDetail("operator", cfg.Evaluator.Operator)
	}
	for i, spec := range cfg.Loggers {
		if _, ok := r.backends[spec.Operator]; !ok {
			return errors.Newf(errors.ErrorTypeNotFound, "backend %s is not registered", spec.Operator).
				WithDetail("field", fmt.Sprintf("loggers[%d].operator", i)).
				WithDetail("operator", spec.Operator)
		}
	}
	for i, name := range cfg.NetworkTester.Metrics {
		if _, ok := r.metrics[name]; !ok {
			return errors.Newf(errors.ErrorTypeNotFound, "metric %s is not registered", name).
				WithDetail("field", fmt.Sprintf("network_tester.metrics[%d]", i)).
				WithDetail("metric", name)
		}
	}
	return nil
}

// ListEvaluators returns the registered evaluator names, sorted
func (r *Registry) ListEvaluators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListBackends returns the registered backend names, sorted
func (r *Registry) ListBackends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMetrics returns the registered metric names, sorted
func (r *Registry) ListMetrics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasEvaluator checks if an evaluator is registered
func (r *Registry) HasEvaluator(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.evaluators[name]
	return exists
}

// HasBackend checks if a backend is registered
func (r *Registry) HasBackend(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.backends[name]
	return exists
}

// HasMetric checks if a metric is registered
func (r *Registry) HasMetric(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.metrics[name]
	return exists
}

// Clear removes all registrations (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evaluators = make(map[string]operator.EvaluatorFactory)
	r.backends = make(map[string]operator.BackendFactory)
	r.metrics = make(map[string]operator.Metric)
}

// Global registry functions

// RegisterEvaluator registers an evaluator in the global registry
func RegisterEvaluator(name string, factory operator.EvaluatorFactory) error {
	return globalRegistry.RegisterEvaluator(name, factory)
}

// RegisterBackend registers a backend in the global registry
func RegisterBackend(name string, factory operator.BackendFactory) error {
	return globalRegistry.RegisterBackend(name, factory)
}

// RegisterMetric registers a metric in the global registry
func RegisterMetric(name string, metric operator.Metric) error {
	return globalRegistry.RegisterMetric(name, metric)
}

// CreateEvaluator creates an evaluator from the global registry
func CreateEvaluator(ref *config.OperatorRef) (operator.Evaluator, error) {
	return globalRegistry.CreateEvaluator(ref)
}

// CreateBackend creates a backend from the global registry
func CreateBackend(spec *config.LoggerSpec) (operator.Backend, error) {
	return globalRegistry.CreateBackend(spec)
}

// ResolveMetric resolves a metric from the global registry
func ResolveMetric(name string) (operator.Metric, error) {
	return globalRegistry.ResolveMetric(name)
}

// Verify verifies a configuration against the global registry
func Verify(cfg *config.ExperimentLogConfig) error {
	return globalRegistry.Verify(cfg)
}

// ListEvaluators returns registered evaluators from the global registry
func ListEvaluators() []string {
	return globalRegistry.ListEvaluators()
}

// ListBackends returns registered backends from the global registry
func ListBackends() []string {
	return globalRegistry.ListBackends()
}

// ListMetrics returns registered metrics from the global registry
func ListMetrics() []string {
	return globalRegistry.ListMetrics()
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
