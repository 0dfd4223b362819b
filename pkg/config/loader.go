package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/expkit/explog/pkg/errors"
	"github.com/expkit/explog/pkg/json"
)

// Format identifies the document encoding of a configuration source.
type Format string

const (
	// FormatJSON is a JSON-encoded document
	FormatJSON Format = "json"
	// FormatYAML is a YAML-encoded document
	FormatYAML Format = "yaml"
)

// FormatForPath infers the document format from a file extension.
// JSON is the default for unknown extensions since the original parameter
// documents are JSON files.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates an experiment logging configuration from a file.
// The document format is inferred from the file extension. Environment
// variable references of the form ${VAR} are substituted before parsing.
//
// Load fails fast: the first validation failure is returned with the field
// path and offending value, and no partial configuration is ever produced.
func Load(path string) (*ExperimentLogConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").
			WithDetail("path", path)
	}
	return LoadBytes(data, FormatForPath(path))
}

// LoadDir locates and loads the logging configuration inside an experiment
// parameter directory, trying log_params.json, log_params.yaml, and
// log_params.yml in that order.
func LoadDir(dir string) (*ExperimentLogConfig, error) {
	for _, name := range []string{"log_params.json", "log_params.yaml", "log_params.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "no log_params document found in %s", dir).
		WithDetail("path", dir)
}

// LoadBytes parses and validates a configuration document held in memory.
func LoadBytes(data []byte, format Format) (*ExperimentLogConfig, error) {
	content := substituteEnvVars(string(data))

	tree, err := decodeTree([]byte(content), format)
	if err != nil {
		return nil, err
	}
	return fromTree(tree)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}

// decodeTree parses the document into a generic tree. Numbers in JSON
// documents are preserved as json.Number so integral values stay
// distinguishable from fractional ones.
func decodeTree(data []byte, format Format) (map[string]interface{}, error) {
	var tree map[string]interface{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			// yaml.v3 errors carry line information in their message
			return nil, errors.Wrap(err, errors.ErrorTypeParse, "malformed YAML document")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&tree); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeParse, "malformed JSON document")
		}
	}

	if tree == nil {
		return nil, errors.New(errors.ErrorTypeParse, "document is empty")
	}
	return tree, nil
}

// fromTree maps the generic tree field-by-field into the typed configuration,
// validating in the order the contract specifies. Working on the tree rather
// than unmarshalling straight into the struct keeps absent fields
// distinguishable from zero values.
func fromTree(tree map[string]interface{}) (*ExperimentLogConfig, error) {
	for _, key := range []string{"val_log_frequency", "evaluator", "loggers", "network_tester"} {
		if _, ok := tree[key]; !ok {
			return nil, missingField(key)
		}
	}

	cfg := &ExperimentLogConfig{}

	freq, err := toInt(tree["val_log_frequency"])
	if err != nil {
		return nil, invalidValue("val_log_frequency", tree["val_log_frequency"], "must be an integer")
	}
	if freq < 1 {
		return nil, invalidValue("val_log_frequency", freq, "must be an integer >= 1")
	}
	cfg.ValLogFrequency = freq

	evaluator, err := operatorRefAt(tree["evaluator"], "evaluator")
	if err != nil {
		return nil, err
	}
	cfg.Evaluator = *evaluator

	loggers, err := loggersAt(tree["loggers"], "loggers")
	if err != nil {
		return nil, err
	}
	cfg.Loggers = loggers

	tester, err := networkTesterAt(tree["network_tester"], "network_tester")
	if err != nil {
		return nil, err
	}
	cfg.NetworkTester = *tester

	return cfg, nil
}

func operatorRefAt(v interface{}, path string) (*OperatorRef, error) {
	m, err := mappingAt(v, path)
	if err != nil {
		return nil, err
	}
	op, err := requiredStringAt(m, "operator", path)
	if err != nil {
		return nil, err
	}
	return &OperatorRef{Operator: op}, nil
}

func loggersAt(v interface{}, path string) ([]LoggerSpec, error) {
	seq, err := sequenceAt(v, path)
	if err != nil {
		return nil, err
	}

	loggers := make([]LoggerSpec, 0, len(seq))
	for i, item := range seq {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		m, err := mappingAt(item, itemPath)
		if err != nil {
			return nil, err
		}

		op, err := requiredStringAt(m, "operator", itemPath)
		if err != nil {
			return nil, err
		}

		argsVal, ok := m["arguments"]
		if !ok {
			return nil, missingField(itemPath + ".arguments")
		}
		args, err := mappingAt(argsVal, itemPath+".arguments")
		if err != nil {
			return nil, err
		}

		dictsVal, ok := args["log_dicts"]
		if !ok {
			return nil, missingField(itemPath + ".arguments.log_dicts")
		}
		entries, err := logDictsAt(dictsVal, op, i, itemPath+".arguments.log_dicts")
		if err != nil {
			return nil, err
		}

		loggers = append(loggers, LoggerSpec{
			Operator:  op,
			Arguments: LoggerArguments{LogDicts: entries},
		})
	}
	return loggers, nil
}

func logDictsAt(v interface{}, operator string, loggerIndex int, path string) ([]LogEntry, error) {
	seq, err := sequenceAt(v, path)
	if err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(seq))
	for j, item := range seq {
		entryPath := fmt.Sprintf("%s[%d]", path, j)
		m, err := mappingAt(item, entryPath)
		if err != nil {
			return nil, err
		}

		entry := LogEntry{}
		if entry.LogName, err = requiredStringAt(m, "log_name", entryPath); err != nil {
			return nil, err
		}
		if entry.LogVar, err = requiredStringAt(m, "log_var", entryPath); err != nil {
			return nil, err
		}

		if raw, ok := m["log_type"]; ok {
			s, isString := raw.(string)
			if !isString {
				return nil, invalidEnum(entryPath+".log_type", fmt.Sprintf("%v", raw), loggerIndex, j)
			}
			logType := LogType(s)
			if !logType.Valid() {
				return nil, invalidEnum(entryPath+".log_type", s, loggerIndex, j)
			}
			entry.LogType = logType
		}

		if raw, ok := m["log_kwargs"]; ok {
			kwargs, err := mappingAt(raw, entryPath+".log_kwargs")
			if err != nil {
				return nil, err
			}
			if err := validateKwargs(kwargs, operator, entryPath+".log_kwargs"); err != nil {
				return nil, err
			}
			entry.LogKwargs = normalizeKwargs(kwargs)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func networkTesterAt(v interface{}, path string) (*NetworkTesterSpec, error) {
	m, err := mappingAt(v, path)
	if err != nil {
		return nil, err
	}

	metricsVal, ok := m["metrics"]
	if !ok {
		return nil, missingField(path + ".metrics")
	}
	seq, err := sequenceAt(metricsVal, path+".metrics")
	if err != nil {
		return nil, err
	}

	metrics := make([]string, 0, len(seq))
	for i, item := range seq {
		itemPath := fmt.Sprintf("%s.metrics[%d]", path, i)
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, invalidValue(itemPath, item, "must be a non-empty string")
		}
		metrics = append(metrics, s)
	}
	return &NetworkTesterSpec{Metrics: metrics}, nil
}

// Generic tree accessors. YAML and JSON trees differ in how they encode
// mappings and numbers; these helpers normalize both.

func mappingAt(v interface{}, path string) (map[string]interface{}, error) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, invalidValue(path, k, "mapping keys must be strings")
			}
			out[key] = val
		}
		return out, nil
	}
	return nil, invalidValue(path, v, "must be a mapping")
}

func sequenceAt(v interface{}, path string) ([]interface{}, error) {
	seq, ok := v.([]interface{})
	if !ok {
		return nil, invalidValue(path, v, "must be a sequence")
	}
	return seq, nil
}

func requiredStringAt(m map[string]interface{}, key, path string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", missingField(path + "." + key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", invalidValue(path+"."+key, v, "must be a non-empty string")
	}
	return s, nil
}

// normalizeKwargs gives kwarg scalars stable types independent of the source
// document format: integral numbers become int, fractional numbers float64.
// JSON and YAML renditions of the same document then compare equal.
func normalizeKwargs(kwargs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kwargs))
	for key, value := range kwargs {
		if i, err := toInt(value); err == nil {
			out[key] = i
			continue
		}
		switch n := value.(type) {
		case json.Number:
			if f, err := n.Float64(); err == nil {
				out[key] = f
				continue
			}
			out[key] = n.String()
		case float32:
			out[key] = float64(n)
		default:
			out[key] = value
		}
	}
	return out
}

// toInt converts a decoded tree number to an int. Integral floats such as
// 2.0 are accepted; fractional values are not.
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int(f), nil
	}
	return 0, fmt.Errorf("value %v is not an integer", v)
}
