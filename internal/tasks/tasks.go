package tasks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reconquest/pkg/log"
)

const (
	KindPipelineRun    = "pipeline_run"
	KindPipelineCancel = "pipeline_cancel"
)

const DefaultPipelineFilename = "gates.yaml"

// Source points at the tree the pipeline runs against: either a directory
// on the local filesystem or a repository to clone.
type Source struct {
	Dir      string `json:"dir"`
	CloneURL string `json:"clone_url"`
	Commit   string `json:"commit"`
	Branch   string `json:"branch"`
}

func (source Source) Validate() error {
	if source.Dir == "" && source.CloneURL == "" {
		return errors.New("either source dir or clone url must be specified")
	}

	if source.Dir != "" && source.CloneURL != "" {
		return errors.New("source dir and clone url are mutually exclusive")
	}

	return nil
}

// PipelineRun triggers one pipeline: the gate sequence executed for every
// cell of the runtime x system matrix declared in the pipeline file.
type PipelineRun struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	Source   Source            `json:"source"`
	Filename string            `json:"filename"`
	Slug     string            `json:"slug"`
	Env      map[string]string `json:"env"`
	EnvMask  []string          `json:"env_mask"`
}

type PipelineCancel struct {
	Pipelines []int `json:"pipelines"`
}

// Task is the envelope the trigger endpoint receives.
type Task struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func Unmarshal(task Task) (interface{}, error) {
	if task.Kind == "" {
		return nil, nil
	}

	log.Debugf(nil, "task kind: %s", task.Kind)

	kinds := map[string]interface{}{
		KindPipelineRun:    &PipelineRun{},
		KindPipelineCancel: &PipelineCancel{},
	}

	if result, ok := kinds[task.Kind]; ok {
		err := json.Unmarshal(task.Data, result)
		if err != nil {
			return nil, err
		}

		log.Debugf(nil, "task: %#v", result)

		return result, nil
	}

	return nil, fmt.Errorf("unexpected task kind: %q", task.Kind)
}
