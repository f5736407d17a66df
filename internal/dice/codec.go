package dice

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlDie is the on-disk YAML representation of a die.
type yamlDie struct {
	Name   string `yaml:"name"`
	Faces  int    `yaml:"faces"`
	Throws []int  `yaml:"throws,flow"`
}

// Codec serializes dice as YAML mappings of name, faces and throws.
type Codec struct{}

// Ext returns the record file extension.
func (Codec) Ext() string { return "yaml" }

// Marshal encodes d as YAML.
//
// Precondition: d satisfies Validate.
func (Codec) Marshal(d Die) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("encoding die: %w", err)
	}
	return yaml.Marshal(yamlDie{Name: d.Name, Faces: d.Faces, Throws: d.Histogram})
}

// Unmarshal decodes and validates a YAML die record.
//
// Postcondition: Returns a Die satisfying Validate, or a non-nil error.
func (Codec) Unmarshal(data []byte) (Die, error) {
	var y yamlDie
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Die{}, fmt.Errorf("parsing die YAML: %w", err)
	}
	d := Die{Name: y.Name, Faces: y.Faces, Histogram: y.Throws}
	if err := d.Validate(); err != nil {
		return Die{}, fmt.Errorf("validating die: %w", err)
	}
	return d, nil
}
