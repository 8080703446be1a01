package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// SchemaVersion is the configuration schema version this build understands.
const SchemaVersion = "1.0.0"

//go:embed schema/licensebanner-config.schema.json
var configSchema []byte

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return configSchema
}

// ValidateFile validates a config file against the embedded schema. The
// decoder is chosen by extension; YAML is assumed for unknown extensions.
func ValidateFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := safeio.ReadFileContained(filepath.Dir(abs), abs)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	doc, err := decode(data, configType(path))
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := ValidateConfig(doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ValidateConfig validates an already-decoded configuration document.
func ValidateConfig(doc map[string]any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	// Round trip through JSON so YAML and TOML scalars match the schema's
	// JSON types.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %v", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func decode(data []byte, kind string) (map[string]any, error) {
	doc := map[string]any{}
	var err error
	switch kind {
	case "json":
		err = json.Unmarshal(data, &doc)
	case "toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
