package conf

import (
	"gopkg.in/yaml.v3"
)

// YAML implements a koanf.Parser for YAML documents.
type YAML struct{}

func YAMLParser() *YAML {
	return &YAML{}
}

func (p *YAML) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	if out == nil {
		out = make(map[string]any)
	}

	return out, nil
}

func (p *YAML) Marshal(o map[string]any) ([]byte, error) {
	return yaml.Marshal(o)
}
