package env

import (
	"sort"
	"testing"

	"github.com/reconquest/gate-runner/internal/config"
	"github.com/reconquest/gate-runner/internal/gate"
	"github.com/reconquest/gate-runner/internal/mapslice"
	"github.com/reconquest/gate-runner/internal/matrix"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/tasks"
	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	test := assert.New(t)

	task := tasks.PipelineRun{
		ID:   123,
		Name: "pygot",
		Env:  map[string]string{"user_a": "user_a_value"},
	}
	task.Source.Commit = "1234567890"
	task.Source.Branch = "master"

	pipeline := config.Pipeline{
		Roots: config.Roots{Source: "pygot", Tests: "tests"},
		Gates: map[gate.Kind]config.Gate{
			gate.KindLint: {Rcfile: ".pylintrc"},
		},
		Variables: mapslice.FromPairs("PIPELINE_VAR", "pipeline"),
	}

	builder := NewBuilder(
		task,
		matrix.Axis{Runtime: "3.7", System: "python:3.7-slim"},
		pipeline,
		&runner.Config{Name: "gotest"},
		"/work/dir",
	)

	env := builder.Build(config.Gate{
		Variables: mapslice.FromPairs("GATE_VAR", "gate"),
	})

	expected := map[string]string{
		"CI":              "true",
		"CI_PIPELINE_ID":  "123",
		"CI_JOB_NAME":     "3.7/python:3.7-slim",
		"CI_RUNTIME":      "3.7",
		"CI_SYSTEM":       "python:3.7-slim",
		"CI_SOURCE_ROOT":  "pygot",
		"CI_TESTS_ROOT":   "tests",
		"CI_LINT_RCFILE":  ".pylintrc",
		"CI_COMMIT_HASH":  "1234567890",
		"CI_BRANCH":       "master",
		"CI_RUNNER_NAME":  "gotest",
		"CI_PIPELINE_DIR": "/work/dir",
		"user_a":          "user_a_value",
		"PIPELINE_VAR":    "pipeline",
		"GATE_VAR":        "gate",
	}

	for key, value := range expected {
		got, ok := env.Get(key)
		test.True(ok, "missing env var %s", key)
		test.Equal(value, got, "env var %s", key)
	}

	test.Equal("123456", mustGet(env, "CI_COMMIT_SHORT_HASH"))
}

func TestBuilder_GateVariablesShadowPipelineVariables(t *testing.T) {
	test := assert.New(t)

	pipeline := config.Pipeline{
		Variables: mapslice.FromPairs("VAR", "pipeline"),
	}

	builder := NewBuilder(
		tasks.PipelineRun{},
		matrix.Axis{},
		pipeline,
		&runner.Config{},
		"/work/dir",
	)

	env := builder.Build(config.Gate{
		Variables: mapslice.FromPairs("VAR", "gate"),
	})

	test.Equal("gate", mustGet(env, "VAR"))
}

func TestEnv_GetAll_ContainsEveryPair(t *testing.T) {
	test := assert.New(t)

	env := NewEnv(map[string]string{"A": "1", "B": "2"})

	values := env.GetAll()
	sort.Strings(values)

	test.Equal([]string{"A=1", "B=2"}, values)
}

func mustGet(env *Env, key string) string {
	value, _ := env.Get(key)
	return value
}
