package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/report"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/status"
	"github.com/reconquest/gate-runner/internal/tasks"
	"github.com/stretchr/testify/assert"
)

const pipelineYAML = `
matrix:
  runtimes: ["3.7", "3.8"]
  systems: ["python:slim"]
gates:
  install:
    commands: ["pip install -r requirements.txt"]
  test:
    commands: ["pytest tests"]
  style:
    commands: ["pycodestyle pygot tests"]
  docstyle:
    commands: ["pydocstyle pygot tests"]
  lint:
    commands: ["pylint pygot tests"]
`

type fakeContainer struct{ name string }

func (container fakeContainer) ID() string     { return container.name }
func (container fakeContainer) String() string { return container.name }

type fakeExecutor struct {
	mutex    sync.Mutex
	failOn   string
	executed []string
}

func (fake *fakeExecutor) Type() executor.ExecutorType {
	return executor.EXECUTOR_SHELL
}

func (fake *fakeExecutor) Create(
	_ context.Context,
	opts executor.CreateOptions,
) (executor.Container, error) {
	return fakeContainer{name: opts.Name}, nil
}

func (fake *fakeExecutor) Destroy(context.Context, executor.Container) error {
	return nil
}

func (fake *fakeExecutor) Prepare(context.Context, executor.PrepareOptions) error {
	return nil
}

func (fake *fakeExecutor) Exec(
	_ context.Context,
	_ executor.Container,
	opts executor.ExecOptions,
) error {
	command := strings.Join(opts.Cmd, " ")

	fake.mutex.Lock()
	fake.executed = append(fake.executed, command)
	fake.mutex.Unlock()

	if fake.failOn != "" && strings.Contains(command, fake.failOn) {
		return errors.New("exitcode is greater than zero")
	}

	return nil
}

func (fake *fakeExecutor) DetectShell(
	context.Context,
	executor.Container,
) (string, error) {
	return "sh", nil
}

func (fake *fakeExecutor) Cleanup() error { return nil }

func writeSource(t *testing.T, pipelineFile string) string {
	t.Helper()

	dir := t.TempDir()

	err := ioutil.WriteFile(
		filepath.Join(dir, tasks.DefaultPipelineFilename),
		[]byte(pipelineFile),
		0o644,
	)
	if err != nil {
		t.Fatal(err)
	}

	err = ioutil.WriteFile(
		filepath.Join(dir, "main.py"),
		[]byte("print('ok')\n"),
		0o644,
	)
	if err != nil {
		t.Fatal(err)
	}

	return dir
}

func newPipeline(
	t *testing.T,
	fake *fakeExecutor,
	sourceDir string,
) (*Process, *runner.Config) {
	t.Helper()

	config := &runner.Config{
		Name:            "gotest",
		PipelinesDir:    t.TempDir(),
		MaxParallelJobs: 2,
	}

	process := NewProcess(
		context.Background(),
		context.Background(),
		fake,
		config,
		tasks.PipelineRun{
			ID:     1,
			Name:   "pygot",
			Source: tasks.Source{Dir: sourceDir},
		},
		nil,
		log.NewChildWithPrefix("[test]"),
	)

	return process, config
}

func readReport(t *testing.T, dir string) *report.Report {
	t.Helper()

	data, err := ioutil.ReadFile(filepath.Join(dir, report.Filename))
	if err != nil {
		t.Fatal(err)
	}

	var result report.Report
	err = json.Unmarshal(data, &result)
	if err != nil {
		t.Fatal(err)
	}

	return &result
}

func TestProcess_Run_MatrixSuccess(t *testing.T) {
	test := assert.New(t)

	fake := &fakeExecutor{}

	process, _ := newPipeline(t, fake, writeSource(t, pipelineYAML))

	err := process.Run()
	test.NoError(err)
	test.Equal(status.SUCCESS, process.Status())

	// two matrix cells, five gates each
	fake.mutex.Lock()
	executed := len(fake.executed)
	fake.mutex.Unlock()
	test.Equal(10, executed)

	result := readReport(t, process.ReportDir())
	test.Equal("pygot", result.Pipeline)
	test.Equal(status.SUCCESS, result.Status)
	test.NotNil(result.FinishedAt)
	test.Len(result.Jobs, 2)

	names := []string{result.Jobs[0].Name, result.Jobs[1].Name}
	test.Contains(names, "3.7/python:slim")
	test.Contains(names, "3.8/python:slim")

	for _, job := range result.Jobs {
		test.Equal(status.SUCCESS, job.Status, "job %s", job.Name)
	}
}

func TestProcess_Run_OneGateFailureFailsEveryCell(t *testing.T) {
	test := assert.New(t)

	fake := &fakeExecutor{failOn: "pytest"}

	process, _ := newPipeline(t, fake, writeSource(t, pipelineYAML))

	err := process.Run()
	test.Error(err)
	test.Equal(status.FAILED, process.Status())

	result := readReport(t, process.ReportDir())
	test.Equal(status.FAILED, result.Status)
	test.Len(result.Jobs, 2)

	for _, job := range result.Jobs {
		test.Equal(status.FAILED, job.Status, "job %s", job.Name)
	}
}

func TestProcess_Run_CleansCheckoutsButKeepsReport(t *testing.T) {
	test := assert.New(t)

	process, _ := newPipeline(t, &fakeExecutor{}, writeSource(t, pipelineYAML))

	err := process.Run()
	test.NoError(err)

	dir := process.ReportDir()

	_, err = os.Stat(filepath.Join(dir, report.Filename))
	test.NoError(err)

	for _, subdir := range []string{"src", "jobs", "ssh"} {
		_, err = os.Stat(filepath.Join(dir, subdir))
		test.True(os.IsNotExist(err), "subdir %s must be gone", subdir)
	}
}

func TestProcess_Run_MissingPipelineFile(t *testing.T) {
	test := assert.New(t)

	sourceDir := t.TempDir()

	process, _ := newPipeline(t, &fakeExecutor{}, sourceDir)

	err := process.Run()
	test.Error(err)
	test.Contains(err.Error(), "unable to read pipeline file")
	test.Equal(status.FAILED, process.Status())
}
