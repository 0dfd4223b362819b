package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/expkit/explog/pkg/config"
	"github.com/expkit/explog/pkg/errors"
	"github.com/expkit/explog/pkg/json"
	"github.com/expkit/explog/pkg/logger"
	"github.com/expkit/explog/pkg/operator/registry"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "explog",
		Short: "explog - Experiment logging configuration toolkit",
		Long: `explog loads and validates experiment logging configuration documents
(log_params files) describing how a training run logs validation signals:
the logging frequency, the evaluator, the logger backends with their signal
bindings, and the network tester's evaluation metrics.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("explog v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Operators command showing the known operator vocabulary
	operatorsCmd := &cobra.Command{
		Use:   "operators",
		Short: "List known operators and registered implementations",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Known Evaluators:")
			for _, name := range []string{config.EvaluatorClassification, config.EvaluatorBinaryClassification} {
				fmt.Printf("  - %s\n", name)
			}
			fmt.Println("\nKnown Logger Backends:")
			for _, name := range []string{config.BackendTensorboard, config.BackendHDF5, config.BackendSacred} {
				caps, _ := config.KnownBackend(name)
				if caps.RendersTypes {
					fmt.Printf("  - %s (scalar, image, histogram)\n", name)
				} else {
					fmt.Printf("  - %s (scalar only)\n", name)
				}
			}
			if registered := registry.ListBackends(); len(registered) > 0 {
				fmt.Println("\nRegistered Backend Implementations:")
				for _, name := range registered {
					fmt.Printf("  - %s\n", name)
				}
			}
			if registered := registry.ListEvaluators(); len(registered) > 0 {
				fmt.Println("\nRegistered Evaluator Implementations:")
				for _, name := range registered {
					fmt.Printf("  - %s\n", name)
				}
			}
			if registered := registry.ListMetrics(); len(registered) > 0 {
				fmt.Println("\nRegistered Metrics:")
				for _, name := range registered {
					fmt.Printf("  - %s\n", name)
				}
			}
		},
	}
	root.AddCommand(operatorsCmd)

	// Validate command
	var outputFormat, logLevel string
	var resolve bool

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate an experiment logging configuration",
		Long: `Validate an experiment logging configuration document.

The path may be a log_params file (JSON or YAML) or an experiment parameter
directory containing one. On success a configuration summary is printed; on
failure the offending field path and value are reported and the command
exits non-zero.

Example:
  explog validate experiments/unet/log_params.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], outputFormat, logLevel, resolve)
		},
	}
	validateCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	validateCmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	validateCmd.Flags().BoolVar(&resolve, "resolve", false, "Also verify operators and metrics against the registry")
	root.AddCommand(validateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runValidate loads the configuration and reports the result
func runValidate(path, outputFormat, logLevel string, resolve bool) error {
	if err := logger.Init(logger.Config{Level: logLevel, Encoding: "console"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().With(zap.String("path", path))

	cfg, err := loadFromPath(path)
	if err != nil {
		log.Error("configuration invalid", zap.Error(err))
		return describeFailure(err)
	}

	if resolve {
		if err := registry.Verify(cfg); err != nil {
			log.Error("configuration does not resolve", zap.Error(err))
			return describeFailure(err)
		}
	}

	log.Info("configuration valid",
		zap.Int("val_log_frequency", cfg.ValLogFrequency),
		zap.Int("loggers", len(cfg.Loggers)))

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		fmt.Println(string(data))
	default:
		fmt.Print(cfg.Summary())
	}
	return nil
}

// loadFromPath loads from a document file or an experiment parameter directory
func loadFromPath(path string) (*config.ExperimentLogConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "cannot access path").WithDetail("path", path)
	}
	if info.IsDir() {
		return config.LoadDir(path)
	}
	return config.Load(path)
}

// describeFailure renders a validation failure with its field path for the
// command's non-zero exit
func describeFailure(err error) error {
	if field := errors.FieldPath(err); field != "" {
		return fmt.Errorf("invalid configuration at %s: %w", field, err)
	}
	return fmt.Errorf("invalid configuration: %w", err)
}
