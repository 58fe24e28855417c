package routespec

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML loads a spec from a YAML file.
func LoadYAML(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("route spec: %w", err)
	}
	spec, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("route spec %s: %w", path, err)
	}
	return spec, nil
}

// ParseYAML parses a YAML spec. Unknown fields are rejected.
func ParseYAML(data []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(spec.Routes) == 0 {
		return nil, &CompileError{Field: "routes", Message: "routes is required"}
	}
	return &spec, nil
}
