package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reconquest/cog"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/lineflushwriter-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/audit"
	"github.com/reconquest/gate-runner/internal/bufferer"
	"github.com/reconquest/gate-runner/internal/config"
	"github.com/reconquest/gate-runner/internal/coverage"
	"github.com/reconquest/gate-runner/internal/env"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/gate"
	"github.com/reconquest/gate-runner/internal/lint"
	"github.com/reconquest/gate-runner/internal/masker"
	"github.com/reconquest/gate-runner/internal/matrix"
	"github.com/reconquest/gate-runner/internal/notify"
	"github.com/reconquest/gate-runner/internal/report"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/status"
	"github.com/reconquest/gate-runner/internal/syncdo"
	"github.com/reconquest/gate-runner/internal/tasks"
	"github.com/reconquest/gate-runner/internal/utils"
)

const (
	DEFAULT_CONTAINER_JOB_IMAGE = "python:3-slim"
)

type ContextExecutorAuth struct {
	Runner   executor.Auths
	Env      executor.Auths
	Pipeline executor.Auths
}

func (auth *ContextExecutorAuth) List() []executor.Auths {
	return []executor.Auths{
		auth.Runner,
		auth.Env,
		auth.Pipeline,
	}
}

// Process walks one matrix job through the gate sequence:
//
//	TRIGGERED -> INSTALLING -> TESTING -> STYLE_CHECKING -> DOC_CHECKING ->
//	LINTING -> (SUCCESS|FAILURE) -> [REPORTING] -> NOTIFIED -> TERMINAL
//
// Any gate failure jumps straight to FAILURE and the remaining gates are
// marked SKIPPED; coverage is reported only on the success path; the
// notification fires exactly once either way.
//
//go:generate gonstructor -type Process -init init
type Process struct {
	ctx             context.Context
	executor        executor.Executor
	runnerConfig    *runner.Config
	task            tasks.PipelineRun
	configPipeline  config.Pipeline
	axis            matrix.Axis
	workDir         string
	reportJob       *report.Job
	notifier        *notify.Notifier
	uploaders       []coverage.Uploader
	log             *cog.Logger
	contextPullAuth ContextExecutorAuth

	machine   *status.Machine    `gonstructor:"-"`
	container executor.Container `gonstructor:"-"`
	shell     string             `gonstructor:"-"`
	builder   *env.Builder       `gonstructor:"-"`
	startedAt time.Time          `gonstructor:"-"`
	notified  syncdo.Action      `gonstructor:"-"`

	logs struct {
		masker       masker.Masker
		maskWriter   *lineflushwriter.Writer
		directWriter *bufferer.Bufferer
	} `gonstructor:"-"`
}

func (process *Process) init() {
	process.machine = status.NewMachine()
	process.setupDirectWriter()
}

func (process *Process) setupDirectWriter() {
	process.logs.directWriter = bufferer.NewBufferer(
		bufferer.DefaultLogsBufferSize,
		bufferer.DefaultLogsBufferTimeout,
		func(buffer []byte) {
			process.reportJob.AppendLog(buffer)
		},
	)

	go process.logs.directWriter.Run()
}

func (process *Process) setupMaskWriter() {
	mask := map[string]string{}
	for key, value := range process.task.Env {
		mask[key] = value
	}
	mask["DISCORD_WEBHOOK_URL"] = process.runnerConfig.Notify.WebhookURL
	mask["CODECOV_TOKEN"] = process.runnerConfig.Coverage.CodecovToken
	mask["CODACY_PROJECT_TOKEN"] = process.runnerConfig.Coverage.CodacyToken

	secrets := append(
		[]string{},
		process.runnerConfig.Secrets()...,
	)
	secrets = append(secrets, process.task.EnvMask...)

	writer := masker.NewWriter(
		env.NewEnv(mask),
		secrets,
		process.logs.directWriter,
	)

	process.logs.masker = writer

	process.logs.maskWriter = lineflushwriter.New(
		writer,
		&sync.Mutex{},
		true,
	)
}

// Status is the job outcome once Run returned.
func (process *Process) Status() status.Status {
	return process.machine.Outcome()
}

func (process *Process) Destroy() {
	if process.logs.maskWriter != nil {
		process.logs.maskWriter.Close()
	}

	if process.logs.directWriter != nil {
		process.logs.directWriter.Close()
	}
}

func (process *Process) Run() error {
	process.startedAt = utils.Now()

	process.builder = env.NewBuilder(
		process.task,
		process.axis,
		process.configPipeline,
		process.runnerConfig,
		process.workDir,
	)

	process.setupMaskWriter()

	defer process.destroyContainer()

	err := process.prepareContainer()
	if err != nil {
		process.advance(status.PHASE_FAILURE)
		process.notifyOnce()
		process.advance(status.PHASE_NOTIFIED)
		process.advance(status.PHASE_TERMINAL)
		process.reportJob.SetPhases(process.machine.History())
		return err
	}

	gateErr := process.runGates()

	if gateErr == nil {
		process.advance(status.PHASE_SUCCESS)
		process.advance(status.PHASE_REPORTING)
		process.reportCoverage()
	}

	process.notifyOnce()
	process.advance(status.PHASE_NOTIFIED)
	process.advance(status.PHASE_TERMINAL)

	process.reportJob.SetPhases(process.machine.History())

	return gateErr
}

func (process *Process) destroyContainer() {
	if process.container == nil {
		return
	}

	err := process.executor.Destroy(context.Background(), process.container)
	if err != nil {
		log.Errorf(
			karma.
				Describe("id", process.container.ID()).
				Describe("container", process.container.String()).
				Reason(err),
			"unable to destroy container",
		)
	}

	process.container = nil
}

func (process *Process) runGates() error {
	var failure error

	for _, kind := range gate.Order() {
		if failure != nil {
			process.reportJob.SetGate(kind, status.SKIPPED, 0)
			continue
		}

		process.advance(kind.Phase())

		started := utils.Now()

		err := process.runGate(kind)

		duration := utils.Now().Sub(started)

		if err != nil {
			process.reportJob.SetGate(kind, status.FAILED, duration)

			failure = process.errorfRemote(err, "%s", kind.FailureLabel())

			process.advance(status.PHASE_FAILURE)

			continue
		}

		process.reportJob.SetGate(kind, status.SUCCESS, duration)
	}

	return failure
}

func (process *Process) runGate(kind gate.Kind) error {
	definition := process.configPipeline.Gates[kind]

	if kind == gate.KindLint && definition.Builtin {
		return process.runBuiltinLint(definition)
	}

	gateEnv := process.builder.Build(definition)

	for _, command := range process.configPipeline.Commands(kind) {
		err := process.execShell(command, gateEnv)
		if err != nil {
			return karma.
				Describe("cmd", command).
				Reason(err)
		}
	}

	return nil
}

// runBuiltinLint applies the built-in rule engine instead of spawning an
// external linter. It reads the job's private checkout directly, so it
// works the same in docker and shell modes.
func (process *Process) runBuiltinLint(definition config.Gate) error {
	rules := lint.DefaultRules()

	if definition.Rcfile != "" {
		var err error
		rules, err = lint.LoadRules(
			filepath.Join(process.workDir, definition.Rcfile),
		)
		if err != nil {
			return err
		}
	}

	roots := definition.Roots
	if len(roots) == 0 {
		roots = []string{
			process.configPipeline.Roots.Source,
			process.configPipeline.Roots.Tests,
		}
	}

	resolved := make([]string, len(roots))
	for i, root := range roots {
		resolved[i] = filepath.Join(process.workDir, root)
	}

	process.MaskSendPrompt([]string{"lint", strings.Join(roots, " ")})

	violations, err := lint.Check(resolved, rules)
	if err != nil {
		return err
	}

	for _, violation := range violations {
		process.LogMask(violation.String() + "\n")
	}

	if len(violations) > 0 {
		return karma.
			Describe("violations", len(violations)).
			Format(nil, "lint rules violated")
	}

	return nil
}

func (process *Process) reportCoverage() {
	artifact := process.configPipeline.Coverage.Artifact
	if artifact == "" || len(process.uploaders) == 0 {
		return
	}

	path := filepath.Join(process.workDir, artifact)

	parsed, raw, err := coverage.ParseFile(path)
	if err != nil {
		// best effort: a missing artifact never fails a passing job
		process.log.Errorf(err, "unable to read coverage artifact")
		return
	}

	process.reportJob.SetCoverage(parsed.Percent())

	process.LogDirect(
		fmt.Sprintf("\ncoverage: %.2f%%\n", parsed.Percent()),
	)

	meta := coverage.Meta{
		Commit: process.task.Source.Commit,
		Branch: process.task.Source.Branch,
		Slug:   process.task.Slug,
	}

	for _, uploader := range process.uploaders {
		err := uploader.Upload(parsed, raw, meta)
		if err != nil {
			process.log.Errorf(
				err,
				"unable to upload coverage to %s", uploader.Name(),
			)

			continue
		}

		process.log.Infof(
			nil,
			"coverage uploaded to %s: %.2f%%",
			uploader.Name(), parsed.Percent(),
		)
	}
}

func (process *Process) notifyOnce() {
	_ = process.notified.Do(func() error {
		if process.notifier == nil {
			return nil
		}

		err := process.notifier.Notify(notify.Event{
			Pipeline: process.task.Name,
			Job:      process.axis.Label(),
			Status:   process.machine.Outcome(),
			Duration: utils.Now().Sub(process.startedAt),
		})
		if err != nil {
			// non-fatal: the job outcome is already determined
			process.log.Errorf(err, "unable to dispatch notification")
		}

		return nil
	})
}

func (process *Process) prepareContainer() error {
	imageExpr, image := process.getImage()

	process.log.Debugf(nil, "image: %s -> %s", imageExpr, image)

	err := process.executor.Prepare(
		process.ctx,
		executor.PrepareOptions{
			Image:          image,
			OutputConsumer: process.LogMask,
			InfoConsumer:   process.LogMask,
			Auths:          process.contextPullAuth.List(),
		},
	)
	if err != nil {
		return process.errorfRemote(err, "unable to pull image %q", image)
	}

	var volumes []executor.Volume
	if process.executor.Type() == executor.EXECUTOR_DOCKER {
		volumes = append(
			volumes,
			executor.Volume(process.workDir+":"+process.workDir),
		)

		for _, volume := range process.runnerConfig.Docker.Volumes {
			volumes = append(volumes, executor.Volume(volume))
		}
	}

	process.container, err = process.executor.Create(
		process.ctx,
		executor.CreateOptions{
			Name: fmt.Sprintf(
				"pipeline-%d-job-%s-uniq-%s",
				process.task.ID,
				strings.NewReplacer("/", "-", ":", "-").
					Replace(process.axis.Label()),
				utils.RandString(8),
			),
			Image:   image,
			Volumes: volumes,
		},
	)
	if err != nil {
		return process.errorfRemote(err, "unable to create a container")
	}

	err = process.detectShell()
	if err != nil {
		return process.errorfRemote(err, "unable to detect shell in container")
	}

	return nil
}

func (process *Process) getImage() (string, string) {
	var image string
	switch {
	case process.configPipeline.Image != "":
		image = process.configPipeline.Image
	case process.axis.System != "":
		image = process.axis.System
	default:
		image = DEFAULT_CONTAINER_JOB_IMAGE
	}

	expanded := process.expandEnv(image)

	return image, expanded
}

func (process *Process) expandEnv(target string) string {
	baseEnv := process.builder.Build(config.Gate{})

	return os.Expand(target, func(name string) string {
		value, _ := baseEnv.Get(name)
		return value
	})
}

func (process *Process) detectShell() error {
	if process.configPipeline.Shell != "" {
		process.log.Debugf(
			nil,
			"using shell specified in pipeline spec: %q",
			process.configPipeline.Shell,
		)
		process.shell = process.configPipeline.Shell
		return nil
	}

	var err error
	process.shell, err = process.executor.DetectShell(
		process.ctx,
		process.container,
	)
	if err != nil {
		return karma.Format(
			err,
			"unable to detect shell",
		)
	}

	return nil
}

func (process *Process) execShell(cmd string, gateEnv *env.Env) error {
	process.MaskSendPrompt([]string{cmd})

	err := make(chan error, 1)
	go func() {
		defer audit.Go("exec", cmd)()

		err <- process.executor.Exec(
			process.ctx,
			process.container,
			executor.ExecOptions{
				Env:            gateEnv.GetAll(),
				WorkingDir:     process.workDir,
				Cmd:            []string{process.shell, "-c", cmd},
				AttachStdout:   true,
				AttachStderr:   true,
				OutputConsumer: process.LogMask,
			},
		)
	}()

	select {
	case value := <-err:
		return value
	case <-process.ctx.Done():
		return context.Canceled
	}
}

func (process *Process) advance(phase status.Phase) {
	err := process.machine.Advance(phase)
	if err != nil {
		panic("BUG: " + err.Error())
	}
}

func (process *Process) LogMask(text string) {
	process.log.Debugf(nil, "%s", strings.TrimSpace(process.logs.masker.Mask(text)))

	process.logs.maskWriter.Write([]byte(text))
}

func (process *Process) LogDirect(text string) {
	process.log.Debugf(nil, "%s", strings.TrimSpace(text))

	process.logs.directWriter.Write([]byte(text))
}

func (process *Process) MaskSendPrompt(cmd []string) {
	process.LogMask("\n$ " + strings.Join(cmd, " ") + "\n")
}

func (process *Process) SendPromptDirect(cmd []string) {
	process.LogDirect("\n$ " + strings.Join(cmd, " ") + "\n")
}

func (process *Process) ErrorfDirect(
	reason error,
	format string,
	args ...interface{},
) error {
	err := karma.Format(reason, format, args...)
	process.logs.directWriter.Write([]byte("\n\n" + err.Error() + "\n"))
	return err
}

func (process *Process) errorfRemote(
	reason error,
	format string,
	args ...interface{},
) error {
	err := karma.Format(reason, format, args...)
	process.logs.maskWriter.Write([]byte("\n\n" + err.Error() + "\n"))
	return err
}
