package model

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML model configuration from path.
//
// Fields missing from the file keep their DefaultConfig values, including
// fields of nested sections such as anchors and nms.
//
// Arguments:
//   - path: The YAML file to read.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if the file cannot be read, parsed or validated.
//
// Example:
//
// ```go
//
//	cfg, err := model.LoadConfig("configs/ssd_face.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load model config: %v", err)
//	}
//
// ```
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open model config")
	}
	defer f.Close()

	cfg, err := ReadConfig(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load model config %s", path)
	}
	return cfg, nil
}

// ReadConfig decodes a YAML model configuration over DefaultConfig and
// validates it. An empty document yields the defaults.
func ReadConfig(r io.Reader) (Config, error) {
	return DecodeConfig(r, DefaultConfig())
}

// DecodeConfig decodes a YAML model configuration over base and validates it.
// Presets use it to accept per-deployment overrides.
func DecodeConfig(r io.Reader, base Config) (Config, error) {
	cfg := base
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode model config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to path as YAML.
func WriteConfig(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode model config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write model config")
	}
	return nil
}
