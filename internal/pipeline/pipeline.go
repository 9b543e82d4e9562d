package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/reconquest/cog"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/audit"
	"github.com/reconquest/gate-runner/internal/config"
	"github.com/reconquest/gate-runner/internal/coverage"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/job"
	"github.com/reconquest/gate-runner/internal/matrix"
	"github.com/reconquest/gate-runner/internal/notify"
	"github.com/reconquest/gate-runner/internal/ptr"
	"github.com/reconquest/gate-runner/internal/report"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/sshkey"
	"github.com/reconquest/gate-runner/internal/status"
	"github.com/reconquest/gate-runner/internal/tasks"
	"github.com/reconquest/gate-runner/internal/utils"
	"github.com/reconquest/gate-runner/internal/workspace"
)

// Process runs one pipeline: it prepares the workspace, reads the
// pipeline file from the checkout, expands the runtime x system matrix
// and walks every cell through the gate sequence in its own isolated
// job. The aggregate status is FAILED iff any job failed.
//
//go:generate gonstructor -type Process
type Process struct {
	parentCtx    context.Context
	ctx          context.Context
	executor     executor.Executor
	runnerConfig *runner.Config
	task         tasks.PipelineRun
	sshKey       *sshkey.Key
	log          *cog.Logger

	status    status.Status        `gonstructor:"-"`
	config    config.Pipeline      `gonstructor:"-"`
	workspace *workspace.Workspace `gonstructor:"-"`
	report    *report.Report       `gonstructor:"-"`

	auth struct {
		variable    executor.Auths
		environment executor.Auths
	} `gonstructor:"-"`
}

// Status is the aggregate pipeline outcome once Run returned.
func (process *Process) Status() status.Status {
	return process.status
}

// ReportDir is where the run report lands, valid after Run.
func (process *Process) ReportDir() string {
	if process.workspace == nil {
		return ""
	}

	return process.workspace.Dir()
}

func (process *Process) Run() error {
	process.status = status.RUNNING

	process.log.Infof(nil, "pipeline started")

	defer func() {
		process.log.Infof(nil, "pipeline finished: status=%s", process.status)
	}()

	process.report = report.New(process.task.Name, utils.Now())

	defer process.cleanup()

	err := process.prepare()
	if err != nil {
		process.status = status.FAILED
		process.finish()
		return err
	}

	result, err := process.runJobs()

	process.status = result
	process.finish()

	return err
}

func (process *Process) prepare() error {
	process.workspace = workspace.NewWorkspace(
		process.runnerConfig.PipelinesDir,
		fmt.Sprintf("pipeline-%d-uniq-%s", process.task.ID, utils.RandString(10)),
		process.sshKey,
		func(cmd []string) {
			process.log.Debugf(nil, "$ %s", strings.Join(cmd, " "))
		},
		func(text string) {
			process.log.Debugf(nil, "%s", strings.TrimRight(text, "\n"))
		},
	)

	err := process.workspace.Prepare(process.ctx, process.task.Source)
	if err != nil {
		return karma.Format(
			err,
			"unable to prepare workspace with source tree",
		)
	}

	err = process.readConfig()
	if err != nil {
		return err
	}

	return process.parseVariables()
}

func (process *Process) readConfig() error {
	filename := process.task.Filename
	if filename == "" {
		filename = tasks.DefaultPipelineFilename
	}

	path := filepath.Join(process.workspace.SrcDir(), filename)

	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return karma.Format(
			err,
			"unable to read pipeline file: %q", filename,
		)
	}

	process.config, err = config.Unmarshal(contents)
	if err != nil {
		return karma.Format(
			err,
			"unable to unmarshal yaml data: %q", filename,
		)
	}

	return nil
}

func (process *Process) runJobs() (status.Status, error) {
	axes := matrix.Expand(
		process.config.Matrix.Runtimes,
		process.config.Matrix.Systems,
	)

	process.log.Infof(nil, "matrix expanded into %d jobs", len(axes))

	var (
		once      sync.Once
		resultErr error

		failed   bool
		canceled bool

		mutex sync.Mutex
	)

	workers := &sync.WaitGroup{}
	semaphore := make(chan struct{}, process.runnerConfig.MaxParallelJobs)

	total := len(axes)
	for index, axis := range axes {
		workers.Add(1)
		go func(index int, axis matrix.Axis) {
			defer audit.Go("job", index, axis.Label())()
			defer workers.Done()

			semaphore <- struct{}{}
			defer func() {
				<-semaphore
			}()

			result, err := process.runJob(total, index+1, axis)

			mutex.Lock()
			switch result {
			case status.FAILED:
				failed = true
			case status.CANCELED:
				canceled = true
			}
			mutex.Unlock()

			if err != nil {
				once.Do(func() {
					resultErr = err
				})
			}
		}(index, axis)
	}

	workers.Wait()

	switch {
	case failed:
		return status.FAILED, resultErr
	case canceled:
		return status.CANCELED, resultErr
	default:
		return status.SUCCESS, nil
	}
}

func (process *Process) runJob(
	total int,
	index int,
	axis matrix.Axis,
) (status.Status, error) {
	process.log.Infof(
		nil,
		"%d/%d starting job: %s",
		index, total, axis.Label(),
	)

	result, err := process.processJob(axis)

	process.log.Infof(
		nil,
		"%d/%d finished job: %s status=%s",
		index, total, axis.Label(), result,
	)

	if err != nil {
		return result, karma.Format(
			err,
			"job=%s an error occurred during job running", axis.Label(),
		)
	}

	return result, nil
}

func (process *Process) processJob(
	axis matrix.Axis,
) (result status.Status, err error) {
	var task *job.Process

	reportJob := &report.Job{
		Name:      axis.Label(),
		Runtime:   axis.Runtime,
		System:    axis.System,
		Status:    status.RUNNING,
		StartedAt: ptr.TimePtr(utils.Now()),
	}

	process.report.AddJob(reportJob)

	defer func() {
		tears := recover()
		if tears != nil {
			err = karma.Describe("panic", tears).
				Describe("stacktrace", string(debug.Stack())).
				Reason("PANIC")

			log.Error(err)

			result = status.FAILED

			if task != nil {
				task.ErrorfDirect(
					err,
					"the job failed due to an internal error, please report it",
				)
			}
		}

		reportJob.Finish(result, utils.Now())

		if task != nil {
			task.Destroy()
		}
	}()

	workDir, err := process.workspace.JobDir(dirname(axis))
	if err != nil {
		return status.FAILED, err
	}

	task = job.NewProcess(
		process.ctx,
		process.executor,
		process.runnerConfig,
		process.task,
		process.config,
		axis,
		workDir,
		reportJob,
		process.notifier(),
		process.uploaders(),
		process.log.NewChildWithPrefix(
			fmt.Sprintf(
				"[pipeline:%d job:%s]",
				process.task.ID,
				axis.Label(),
			),
		),
		job.ContextExecutorAuth{
			Runner:   process.runnerConfig.GetDockerAuthConfig(),
			Pipeline: process.auth.variable,
			Env:      process.auth.environment,
		},
	)

	err = task.Run()
	if err != nil {
		if utils.IsCanceled(err) {
			// special case when the runner itself gets terminated
			if utils.IsDone(process.parentCtx) {
				task.LogDirect("\n\nWARNING: gate-runner has been terminated")

				return status.FAILED, err
			}

			return status.CANCELED, err
		}

		return status.FAILED, err
	}

	return task.Status(), nil
}

func (process *Process) notifier() *notify.Notifier {
	if process.runnerConfig.Notify.WebhookURL == "" {
		return nil
	}

	return notify.NewNotifier(process.runnerConfig.Notify.WebhookURL)
}

func (process *Process) uploaders() []coverage.Uploader {
	var uploaders []coverage.Uploader

	section := process.runnerConfig.Coverage

	if section.CodecovToken != "" {
		uploaders = append(
			uploaders,
			coverage.NewCodecovUploader(section.CodecovAddress, section.CodecovToken),
		)
	}

	if section.CodacyToken != "" {
		uploaders = append(
			uploaders,
			coverage.NewCodacyUploader(section.CodacyAddress, section.CodacyToken),
		)
	}

	return uploaders
}

func (process *Process) parseVariables() error {
	if process.config.Variables != nil {
		pair := process.config.Variables.Find("DOCKER_AUTH_CONFIG")
		if pair != nil {
			err := json.Unmarshal([]byte(pair.Value), &process.auth.variable)
			if err != nil {
				return karma.Format(
					err,
					"json: unable to decode DOCKER_AUTH_CONFIG "+
						"specified on the pipeline level",
				)
			}
		}
	}

	if process.task.Env != nil {
		raw, ok := process.task.Env["DOCKER_AUTH_CONFIG"]
		if ok {
			err := json.Unmarshal([]byte(raw), &process.auth.environment)
			if err != nil {
				return karma.Format(
					err,
					"json: unable to decode DOCKER_AUTH_CONFIG "+
						"specified as a pipeline environment variable",
				)
			}
		}
	}

	return nil
}

func (process *Process) finish() {
	process.report.Finish(process.status, utils.Now())

	if process.workspace == nil || process.workspace.Dir() == "" {
		return
	}

	err := process.report.Write(process.workspace.Dir())
	if err != nil {
		process.log.Errorf(err, "unable to write run report")
	}
}

// cleanup throws away the checkouts but keeps the run directory: the run
// report stays behind as the outcome surface of the pipeline.
func (process *Process) cleanup() {
	if process.workspace == nil {
		return
	}

	process.workspace.Clean()
}

func dirname(axis matrix.Axis) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(axis.Label())
}
