package env

import (
	"fmt"

	"github.com/reconquest/gate-runner/internal/builtin"
	"github.com/reconquest/gate-runner/internal/config"
	"github.com/reconquest/gate-runner/internal/gate"
	"github.com/reconquest/gate-runner/internal/matrix"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/tasks"
)

//go:generate gonstructor -type Builder
type Builder struct {
	task         tasks.PipelineRun
	axis         matrix.Axis
	config       config.Pipeline
	runnerConfig *runner.Config
	workDir      string
}

//go:generate gonstructor --type=Env --init init
type Env struct {
	mapping map[string]string
	values  []string `gonstructor:"-"`
}

func (env *Env) init() {
	for key, value := range env.mapping {
		env.values = append(env.values, key+"="+value)
	}
}

func (env *Env) GetAll() []string {
	return env.values
}

func (env *Env) Get(key string) (string, bool) {
	value, ok := env.mapping[key]
	return value, ok
}

// Build returns the environment of one gate execution: the ambient CI
// values, then task env, then pipeline variables, then gate variables,
// later entries shadowing earlier ones.
func (builder *Builder) Build(definition config.Gate) *Env {
	mapping := builder.build(definition)
	return NewEnv(mapping)
}

func (builder *Builder) build(definition config.Gate) map[string]string {
	vars := map[string]string{}

	vars["CI"] = "true"

	vars["CI_PIPELINE_ID"] = fmt.Sprint(builder.task.ID)
	vars["CI_PIPELINE_NAME"] = builder.task.Name
	vars["CI_PIPELINE_DIR"] = builder.workDir

	vars["CI_JOB_NAME"] = builder.axis.Label()
	vars["CI_RUNTIME"] = builder.axis.Runtime
	vars["CI_SYSTEM"] = builder.axis.System

	vars["CI_SOURCE_ROOT"] = builder.config.Roots.Source
	vars["CI_TESTS_ROOT"] = builder.config.Roots.Tests

	if lint, ok := builder.config.Gates[gate.KindLint]; ok {
		if lint.Rcfile != "" {
			vars["CI_LINT_RCFILE"] = lint.Rcfile
		}
	}

	vars["CI_COMMIT_HASH"] = builder.task.Source.Commit
	if len(builder.task.Source.Commit) > 6 {
		vars["CI_COMMIT_SHORT_HASH"] = builder.task.Source.Commit[0:6]
	}

	if builder.task.Source.Branch != "" {
		vars["CI_BRANCH"] = builder.task.Source.Branch
	}

	vars["CI_RUNNER_NAME"] = builder.runnerConfig.Name
	vars["CI_RUNNER_VERSION"] = builtin.Version

	for key, value := range builder.task.Env {
		vars[key] = value
	}

	if builder.config.Variables != nil {
		for _, pair := range builder.config.Variables.Pairs() {
			vars[pair.Key] = pair.Value
		}
	}

	if definition.Variables != nil {
		for _, pair := range definition.Variables.Pairs() {
			vars[pair.Key] = pair.Value
		}
	}

	return vars
}
