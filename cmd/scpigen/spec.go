package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// commandSpec is one entry of the YAML command specification §4.6
// describes as the input to the offline trie generator.
type commandSpec struct {
	Name          string          `yaml:"name"`
	Parameters    []parameterSpec `yaml:"parameters,omitempty"`
	HandlerName   string          `yaml:"handler,omitempty"`
}

// Handler returns the application-supplied handler identifier for this
// command, defaulting to the command's own name when the YAML source
// leaves it unset.
func (c commandSpec) Handler() string {
	if c.HandlerName != "" {
		return c.HandlerName
	}
	return c.Name
}

type parameterSpec struct {
	Type    string   `yaml:"type"`
	Choices []string `yaml:"choices,omitempty"`
}

// fileSpec is the root of a commands.yaml document.
type fileSpec struct {
	Package  string        `yaml:"package"`
	Variable string        `yaml:"variable"`
	Commands []commandSpec `yaml:"commands"`
}

func loadSpec(path string) (*fileSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scpigen: reading %s: %w", path, err)
	}
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("scpigen: parsing %s: %w", path, err)
	}
	if spec.Package == "" {
		spec.Package = "commands"
	}
	if spec.Variable == "" {
		spec.Variable = "Commands"
	}
	return &spec, nil
}

var parameterTypeConstants = map[string]string{
	"string":          "scpi.TypeString",
	"number":          "scpi.TypeNumber",
	"boolean":         "scpi.TypeBoolean",
	"enum":            "scpi.TypeEnum",
	"arbitrary-data":  "scpi.TypeArbitraryData",
}

func parameterTypeConstant(t string) (string, error) {
	c, ok := parameterTypeConstants[t]
	if !ok {
		return "", fmt.Errorf("scpigen: unknown parameter type %q", t)
	}
	return c, nil
}
