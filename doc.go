// Package explog provides loading, validation, and resolution of experiment
// logging configuration for machine-learning training runs.
//
// A training experiment is driven by a declarative log_params document that
// names a validation logging frequency, an evaluator, a list of logger
// backends with the signals each records, and the metrics computed by the
// network tester. explog turns that document into a validated, immutable
// configuration object and checks that every operator it names resolves
// against a registry of implementations.
//
// # Architecture
//
// The module is organized into small focused packages:
//
//   - pkg/config: the configuration loader and validator. One-shot,
//     synchronous, fail-fast: the first violation is reported with its
//     exact field path and offending value, and no partial configuration
//     is ever returned.
//
//   - pkg/operator: the interfaces between a loaded configuration and the
//     training framework's runtime components (evaluators, logger backends,
//     variable stores, metrics).
//
//   - pkg/operator/registry: the explicit lookup table resolving operator
//     and metric names to registered implementations at startup.
//
//   - pkg/errors, pkg/logger, pkg/json: structured errors, zap logging,
//     and JSON codec support shared across the module.
//
// # Quick Start
//
// Validate a document from the command line:
//
//	explog validate experiments/unet/log_params.json
//
// Or load it programmatically:
//
//	cfg, err := config.Load("log_params.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := registry.Verify(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// The loaded configuration is read-only and safe to share across goroutines
// without synchronization.
package explog
