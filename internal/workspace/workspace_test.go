package workspace

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/reconquest/gate-runner/internal/tasks"
	"github.com/stretchr/testify/assert"
)

func TestWorkspace_Prepare_CopiesLocalDir(t *testing.T) {
	test := assert.New(t)

	source := t.TempDir()
	pipelines := t.TempDir()

	test.NoError(os.MkdirAll(filepath.Join(source, "pygot"), 0o755))
	test.NoError(ioutil.WriteFile(
		filepath.Join(source, "pygot", "models.py"),
		[]byte("HOUSES = []\n"),
		0o644,
	))
	test.NoError(ioutil.WriteFile(
		filepath.Join(source, "gates.yaml"),
		[]byte("gates: {}\n"),
		0o644,
	))

	workspace := NewWorkspace(pipelines, "pipeline-1", nil, nil, nil)

	err := workspace.Prepare(context.Background(), tasks.Source{Dir: source})
	test.NoError(err)

	contents, err := ioutil.ReadFile(
		filepath.Join(workspace.SrcDir(), "pygot", "models.py"),
	)
	test.NoError(err)
	test.Equal("HOUSES = []\n", string(contents))
}

func TestWorkspace_JobDir_IsolatesJobs(t *testing.T) {
	test := assert.New(t)

	source := t.TempDir()
	pipelines := t.TempDir()

	test.NoError(ioutil.WriteFile(
		filepath.Join(source, "file.py"),
		[]byte("original"),
		0o644,
	))

	workspace := NewWorkspace(pipelines, "pipeline-2", nil, nil, nil)
	test.NoError(workspace.Prepare(context.Background(), tasks.Source{Dir: source}))

	first, err := workspace.JobDir("3.7-linux")
	test.NoError(err)

	second, err := workspace.JobDir("3.8-linux")
	test.NoError(err)

	test.NotEqual(first, second)

	// a write in one job dir is invisible in the other
	test.NoError(ioutil.WriteFile(
		filepath.Join(first, "file.py"),
		[]byte("mutated"),
		0o644,
	))

	contents, err := ioutil.ReadFile(filepath.Join(second, "file.py"))
	test.NoError(err)
	test.Equal("original", string(contents))
}

func TestWorkspace_Prepare_RejectsAmbiguousSource(t *testing.T) {
	test := assert.New(t)

	workspace := NewWorkspace(t.TempDir(), "pipeline-3", nil, nil, nil)

	err := workspace.Prepare(context.Background(), tasks.Source{
		Dir:      "/somewhere",
		CloneURL: "git@example.com:pygot/pygot.git",
	})
	test.Error(err)

	err = workspace.Prepare(context.Background(), tasks.Source{})
	test.Error(err)
}

func TestWorkspace_Destroy_RemovesRunDir(t *testing.T) {
	test := assert.New(t)

	source := t.TempDir()
	pipelines := t.TempDir()

	workspace := NewWorkspace(pipelines, "pipeline-4", nil, nil, nil)
	test.NoError(workspace.Prepare(context.Background(), tasks.Source{Dir: source}))

	workspace.Destroy()

	_, err := os.Stat(workspace.Dir())
	test.True(os.IsNotExist(err))
}
