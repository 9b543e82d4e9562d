package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnmarshal_PipelineRun(t *testing.T) {
	test := assert.New(t)

	resource, err := Unmarshal(Task{
		Kind: KindPipelineRun,
		Data: json.RawMessage(`{
			"id": 42,
			"name": "pygot",
			"source": {"clone_url": "git@example.com:pygot.git", "commit": "abcdef"},
			"env": {"PYTEST_ADDOPTS": "-v"},
			"env_mask": ["PYTEST_ADDOPTS"]
		}`),
	})
	test.NoError(err)

	task, ok := resource.(*PipelineRun)
	test.True(ok)
	test.Equal(42, task.ID)
	test.Equal("pygot", task.Name)
	test.Equal("git@example.com:pygot.git", task.Source.CloneURL)
	test.Equal("abcdef", task.Source.Commit)
	test.Equal("-v", task.Env["PYTEST_ADDOPTS"])
	test.Equal([]string{"PYTEST_ADDOPTS"}, task.EnvMask)
}

func TestUnmarshal_PipelineCancel(t *testing.T) {
	test := assert.New(t)

	resource, err := Unmarshal(Task{
		Kind: KindPipelineCancel,
		Data: json.RawMessage(`{"pipelines": [1, 2, 3]}`),
	})
	test.NoError(err)

	task, ok := resource.(*PipelineCancel)
	test.True(ok)
	test.Equal([]int{1, 2, 3}, task.Pipelines)
}

func TestUnmarshal_EmptyKind(t *testing.T) {
	test := assert.New(t)

	resource, err := Unmarshal(Task{})
	test.NoError(err)
	test.Nil(resource)
}

func TestUnmarshal_UnexpectedKind(t *testing.T) {
	test := assert.New(t)

	_, err := Unmarshal(Task{Kind: "pipeline_dance"})
	test.Error(err)
	test.Contains(err.Error(), "unexpected task kind")
}

func TestSource_Validate(t *testing.T) {
	test := assert.New(t)

	test.NoError(Source{Dir: "/tmp/project"}.Validate())
	test.NoError(Source{CloneURL: "https://example.com/pygot.git"}.Validate())

	test.Error(Source{}.Validate())
	test.Error(Source{Dir: "/tmp", CloneURL: "https://example.com"}.Validate())
}
