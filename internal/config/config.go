package config

import (
	"errors"

	"github.com/reconquest/gate-runner/internal/gate"
	"github.com/reconquest/gate-runner/internal/mapslice"
	"github.com/reconquest/karma-go"
	"gopkg.in/yaml.v3"
)

// Pipeline is the parsed pipeline file (gates.yaml). Top-level keys other
// than the reserved ones are gate definitions.
type Pipeline struct {
	Variables *mapslice.MapSlice `json:"variables" yaml:"variables"`
	Shell     string             `json:"shell"     yaml:"shell"`
	Image     string             `json:"image"     yaml:"image"`
	Matrix    Matrix             `json:"matrix"    yaml:"matrix"`
	Roots     Roots              `json:"roots"     yaml:"roots"`
	Coverage  Coverage           `json:"coverage"  yaml:"coverage"`
	Gates     map[gate.Kind]Gate `json:"gates"     yaml:"gates"`
}

// Matrix describes the job matrix: every runtime is combined with every
// system into an isolated job.
type Matrix struct {
	Runtimes []string `json:"runtimes" yaml:"runtimes"`
	Systems  []string `json:"systems"  yaml:"systems"`
}

// Roots are the trees the style, doc-style and lint gates scan.
type Roots struct {
	Source string `json:"source" yaml:"source"`
	Tests  string `json:"tests"  yaml:"tests"`
}

type Coverage struct {
	Artifact string `json:"artifact" yaml:"artifact"`
}

type Gate struct {
	Variables *mapslice.MapSlice `json:"variables" yaml:"variables"`
	Shell     string             `json:"shell"     yaml:"shell"`
	Image     string             `json:"image"     yaml:"image"`
	Commands  []string           `json:"commands"  yaml:"commands"`

	// lint gate only
	Rcfile  string   `json:"rcfile"  yaml:"rcfile"`
	Builtin bool     `json:"builtin" yaml:"builtin"`
	Roots   []string `json:"roots"   yaml:"roots"`
}

// Commands returns the gate commands, falling back to the built-in
// defaults of the gate kind. A lint gate that pins an rcfile without
// overriding the commands gets the rcfile-aware default.
func (pipeline Pipeline) Commands(kind gate.Kind) []string {
	definition, ok := pipeline.Gates[kind]
	if ok && len(definition.Commands) > 0 {
		return definition.Commands
	}

	if ok && kind == gate.KindLint && definition.Rcfile != "" {
		return gate.RcfileLintCommands()
	}

	return gate.DefaultCommands(kind)
}

func Unmarshal(data []byte) (Pipeline, error) {
	var config Pipeline

	raw := map[string]yaml.Node{}
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return config, err
	}

	if node, ok := raw["image"]; ok {
		err = node.Decode(&config.Image)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'image'",
			)
		}

		delete(raw, "image")
	}

	if node, ok := raw["shell"]; ok {
		err = node.Decode(&config.Shell)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'shell'",
			)
		}

		delete(raw, "shell")
	}

	if node, ok := raw["matrix"]; ok {
		err = node.Decode(&config.Matrix)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'matrix'",
			)
		}

		delete(raw, "matrix")
	}

	if node, ok := raw["roots"]; ok {
		err = node.Decode(&config.Roots)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'roots'",
			)
		}

		delete(raw, "roots")
	}

	if node, ok := raw["coverage"]; ok {
		err = node.Decode(&config.Coverage)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'coverage'",
			)
		}

		delete(raw, "coverage")
	}

	if node, ok := raw["variables"]; ok {
		config.Variables, err = mapslice.New(node)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml field: 'variables'",
			)
		}

		delete(raw, "variables")
	}

	node, ok := raw["gates"]
	if !ok {
		return config, errors.New("missing gates field")
	}

	delete(raw, "gates")

	gates := map[string]yaml.Node{}
	err = node.Decode(&gates)
	if err != nil {
		return config, karma.Format(
			err,
			"invalid yaml field: 'gates'",
		)
	}

	config.Gates = map[gate.Kind]Gate{}
	for name, node := range gates {
		kind := gate.Kind(name)
		if !gate.Known(kind) {
			return config, karma.
				Describe("gate", name).
				Reason("unknown gate kind")
		}

		var definition Gate
		err := node.Decode(&definition)
		if err != nil {
			return config, karma.Format(
				err,
				"invalid yaml gate: '%s'", name,
			)
		}

		config.Gates[kind] = definition
	}

	for name := range raw {
		return config, karma.
			Describe("field", name).
			Reason("unexpected top-level field")
	}

	if config.Roots.Source == "" {
		config.Roots.Source = "."
	}

	if config.Roots.Tests == "" {
		config.Roots.Tests = "tests"
	}

	return config, nil
}
