package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expkit/explog/pkg/config"
	"github.com/expkit/explog/pkg/errors"
	"github.com/expkit/explog/pkg/operator"
)

type fakeEvaluator struct {
	name string
}

func (e *fakeEvaluator) Name() string                  { return e.name }
func (e *fakeEvaluator) Store() operator.VariableStore { return fakeStore{} }
func (e *fakeEvaluator) Close(context.Context) error   { return nil }

type fakeStore struct{}

func (fakeStore) Lookup(string) (operator.Value, bool) { return operator.Value{}, false }

type fakeBackend struct {
	name string
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Log(context.Context, int64, operator.VariableStore) error {
	return nil
}
func (b *fakeBackend) Close(context.Context) error { return nil }

func newEvaluatorFactory(name string) operator.EvaluatorFactory {
	return func(ref *config.OperatorRef) (operator.Evaluator, error) {
		return &fakeEvaluator{name: ref.Operator}, nil
	}
}

func newBackendFactory(name string) operator.BackendFactory {
	return func(spec *config.LoggerSpec) (operator.Backend, error) {
		return &fakeBackend{name: spec.Operator}, nil
	}
}

func meanMetric(batch []float64) float64 {
	if len(batch) == 0 {
		return 0
	}
	var sum float64
	for _, v := range batch {
		sum += v
	}
	return sum / float64(len(batch))
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterEvaluator(config.EvaluatorBinaryClassification,
		newEvaluatorFactory(config.EvaluatorBinaryClassification)))
	require.NoError(t, r.RegisterBackend(config.BackendTensorboard,
		newBackendFactory(config.BackendTensorboard)))
	require.NoError(t, r.RegisterMetric("dice", meanMetric))

	eval, err := r.CreateEvaluator(&config.OperatorRef{Operator: config.EvaluatorBinaryClassification})
	require.NoError(t, err)
	assert.Equal(t, config.EvaluatorBinaryClassification, eval.Name())

	backend, err := r.CreateBackend(&config.LoggerSpec{Operator: config.BackendTensorboard})
	require.NoError(t, err)
	assert.Equal(t, config.BackendTensorboard, backend.Name())

	metric, err := r.ResolveMetric("dice")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, metric([]float64{1, 2, 3}), 1e-9)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterBackend(config.BackendHDF5, newBackendFactory(config.BackendHDF5)))
	err := r.RegisterBackend(config.BackendHDF5, newBackendFactory(config.BackendHDF5))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestRegistry_UnknownNames(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateEvaluator(&config.OperatorRef{Operator: "NopeEvaluator"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = r.CreateBackend(&config.LoggerSpec{Operator: "NopeLogger"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = r.ResolveMetric("nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func testConfig() *config.ExperimentLogConfig {
	return &config.ExperimentLogConfig{
		ValLogFrequency: 1,
		Evaluator:       config.OperatorRef{Operator: config.EvaluatorBinaryClassification},
		Loggers: []config.LoggerSpec{
			{Operator: config.BackendTensorboard},
			{Operator: config.BackendHDF5},
		},
		NetworkTester: config.NetworkTesterSpec{Metrics: []string{"dice"}},
	}
}

func registerAll(t *testing.T, r *Registry) {
	t.Helper()
	require.NoError(t, r.RegisterEvaluator(config.EvaluatorBinaryClassification,
		newEvaluatorFactory(config.EvaluatorBinaryClassification)))
	require.NoError(t, r.RegisterBackend(config.BackendTensorboard,
		newBackendFactory(config.BackendTensorboard)))
	require.NoError(t, r.RegisterBackend(config.BackendHDF5,
		newBackendFactory(config.BackendHDF5)))
	require.NoError(t, r.RegisterMetric("dice", meanMetric))
}

func TestRegistry_Verify(t *testing.T) {
	t.Run("fully resolvable configuration", func(t *testing.T) {
		r := NewRegistry()
		registerAll(t, r)
		assert.NoError(t, r.Verify(testConfig()))
	})

	t.Run("unregistered evaluator", func(t *testing.T) {
		r := NewRegistry()
		registerAll(t, r)

		cfg := testConfig()
		cfg.Evaluator.Operator = "RegressionEvaluator"

		err := r.Verify(cfg)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
		assert.Equal(t, "evaluator.operator", errors.FieldPath(err))
	})

	t.Run("unregistered backend reports its position", func(t *testing.T) {
		r := NewRegistry()
		registerAll(t, r)

		cfg := testConfig()
		cfg.Loggers = append(cfg.Loggers, config.LoggerSpec{Operator: "SacredLogger"})

		err := r.Verify(cfg)
		require.Error(t, err)
		assert.Equal(t, "loggers[2].operator", errors.FieldPath(err))
	})

	t.Run("unregistered metric", func(t *testing.T) {
		r := NewRegistry()
		registerAll(t, r)

		cfg := testConfig()
		cfg.NetworkTester.Metrics = []string{"dice", "hausdorff"}

		err := r.Verify(cfg)
		require.Error(t, err)
		assert.Equal(t, "network_tester.metrics[1]", errors.FieldPath(err))
	})
}

func TestRegistry_ListsAndHas(t *testing.T) {
	r := NewRegistry()
	registerAll(t, r)

	assert.Equal(t, []string{config.EvaluatorBinaryClassification}, r.ListEvaluators())
	assert.Equal(t, []string{config.BackendHDF5, config.BackendTensorboard}, r.ListBackends())
	assert.Equal(t, []string{"dice"}, r.ListMetrics())

	assert.True(t, r.HasEvaluator(config.EvaluatorBinaryClassification))
	assert.True(t, r.HasBackend(config.BackendTensorboard))
	assert.True(t, r.HasMetric("dice"))
	assert.False(t, r.HasBackend("WandbLogger"))
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	registerAll(t, r)

	r.Clear()
	assert.Empty(t, r.ListEvaluators())
	assert.Empty(t, r.ListBackends())
	assert.Empty(t, r.ListMetrics())
}

func TestGlobalRegistry(t *testing.T) {
	GetRegistry().Clear()
	t.Cleanup(func() { GetRegistry().Clear() })

	require.NoError(t, RegisterEvaluator(config.EvaluatorClassification,
		newEvaluatorFactory(config.EvaluatorClassification)))
	require.NoError(t, RegisterBackend(config.BackendSacred,
		newBackendFactory(config.BackendSacred)))
	require.NoError(t, RegisterMetric("accuracy", meanMetric))

	assert.Equal(t, []string{config.EvaluatorClassification}, ListEvaluators())
	assert.Equal(t, []string{config.BackendSacred}, ListBackends())
	assert.Equal(t, []string{"accuracy"}, ListMetrics())

	eval, err := CreateEvaluator(&config.OperatorRef{Operator: config.EvaluatorClassification})
	require.NoError(t, err)
	assert.NotNil(t, eval.Store())

	backend, err := CreateBackend(&config.LoggerSpec{Operator: config.BackendSacred})
	require.NoError(t, err)
	require.NoError(t, backend.Log(context.Background(), 1, eval.Store()))

	_, err = ResolveMetric("accuracy")
	require.NoError(t, err)

	cfg := &config.ExperimentLogConfig{
		ValLogFrequency: 1,
		Evaluator:       config.OperatorRef{Operator: config.EvaluatorClassification},
		Loggers:         []config.LoggerSpec{{Operator: config.BackendSacred}},
		NetworkTester:   config.NetworkTesterSpec{Metrics: []string{"accuracy"}},
	}
	assert.NoError(t, Verify(cfg))
}
