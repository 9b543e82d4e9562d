package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/audit"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/executor/docker"
	"github.com/reconquest/gate-runner/internal/executor/shell"
	"github.com/reconquest/gate-runner/internal/pipeline"
	"github.com/reconquest/gate-runner/internal/runner"
	"github.com/reconquest/gate-runner/internal/safemap"
	"github.com/reconquest/gate-runner/internal/set"
	"github.com/reconquest/gate-runner/internal/sshkey"
	"github.com/reconquest/gate-runner/internal/tasks"
)

type Scheduler struct {
	executor       executor.Executor
	config         *runner.Config
	pipelinesMap   safemap.IntToAny
	pipelines      int64
	pipelinesGroup sync.WaitGroup
	cancels        safemap.IntToContextCancelFunc

	context context.Context
	cancel  context.CancelFunc
}

func (daemon *Daemon) startScheduler() error {
	execer, err := newExecutor(daemon.config)
	if err != nil {
		return karma.Format(err, "unable to initialize executor")
	}

	err = execer.Cleanup()
	if err != nil {
		return karma.Format(err, "unable to cleanup after previous runs")
	}

	ctx, cancel := context.WithCancel(context.Background())

	daemon.scheduler = &Scheduler{
		executor:     execer,
		config:       daemon.config,
		pipelinesMap: safemap.NewIntToAny(),
		cancels:      safemap.NewIntToContextCancelFunc(),
		context:      ctx,
		cancel:       cancel,
	}

	log.Infof(nil, "task scheduler started")

	return nil
}

func newExecutor(config *runner.Config) (executor.Executor, error) {
	switch config.Mode {
	case runner.RUNNER_MODE_DOCKER:
		return docker.NewDocker(
			config.Docker.Network,
			config.Docker.Volumes,
		)

	case runner.RUNNER_MODE_SHELL:
		return shell.NewShell(), nil

	default:
		return nil, fmt.Errorf("unexpected exec mode: %q", config.Mode)
	}
}

// Push accepts a task from the trigger endpoint and dispatches it.
func (scheduler *Scheduler) Push(task tasks.Task) error {
	resource, err := tasks.Unmarshal(task)
	if err != nil {
		return err
	}

	switch resource := resource.(type) {
	case *tasks.PipelineRun:
		return scheduler.startPipeline(*resource)

	case *tasks.PipelineCancel:
		for _, id := range set.NewIntSet(resource.Pipelines...).List() {
			scheduler.cancelPipeline(id)
		}

		return nil

	case nil:
		return nil

	default:
		return fmt.Errorf("unexpected type of task %#v: %T", resource, resource)
	}
}

func (scheduler *Scheduler) startPipeline(task tasks.PipelineRun) error {
	running := atomic.LoadInt64(&scheduler.pipelines)
	if running >= scheduler.config.MaxParallelPipelines {
		return karma.
			Describe("running", running).
			Describe("max", scheduler.config.MaxParallelPipelines).
			Format(nil, "too many pipelines are running already")
	}

	if _, ok := scheduler.pipelinesMap.Load(task.ID); ok {
		return fmt.Errorf("pipeline %d is already running", task.ID)
	}

	err := task.Source.Validate()
	if err != nil {
		return err
	}

	sshKey, err := scheduler.obtainSSHKey(task.Source)
	if err != nil {
		return karma.Format(err, "unable to generate a deploy key")
	}

	log.Debugf(nil, "starting pipeline: %d", task.ID)

	ctx, cancel := context.WithCancel(context.Background())

	process := pipeline.NewProcess(
		scheduler.context,
		ctx,
		scheduler.executor,
		scheduler.config,
		task,
		sshKey,
		log.NewChildWithPrefix(fmt.Sprintf("[pipeline:%d]", task.ID)),
	)

	scheduler.pipelinesMap.Store(task.ID, struct{}{})
	scheduler.cancels.Store(task.ID, cancel)
	atomic.AddInt64(&scheduler.pipelines, 1)
	scheduler.pipelinesGroup.Add(1)

	go func() {
		defer audit.Go("pipeline", task.ID)()

		defer scheduler.pipelinesMap.Delete(task.ID)
		defer scheduler.cancels.Delete(task.ID)
		defer atomic.AddInt64(&scheduler.pipelines, -1)
		defer scheduler.pipelinesGroup.Done()

		err := process.Run()
		if err != nil {
			if karma.Contains(err, context.Canceled) {
				log.Infof(nil, "pipeline %d finished due to cancel", task.ID)
				return
			}

			log.Debug(
				karma.Format(
					err,
					"pipeline=%d an error occurred during task running",
					task.ID,
				),
			)
		}
	}()

	return nil
}

// obtainSSHKey generates an ephemeral deploy key when the pipeline is
// going to clone over ssh, there is nothing to authenticate otherwise.
func (scheduler *Scheduler) obtainSSHKey(source tasks.Source) (*sshkey.Key, error) {
	if source.CloneURL == "" {
		return nil, nil
	}

	key, err := sshkey.Generate()
	if err != nil {
		return nil, err
	}

	log.Debugf(nil, "deploy key generated: %s", key.Fingerprint())

	return key, nil
}

func (scheduler *Scheduler) cancelPipeline(id int) {
	cancel, ok := scheduler.cancels.Load(id)
	if !ok {
		log.Warningf(
			nil,
			"unable to cancel pipeline %d, its context already gone",
			id,
		)
	} else {
		log.Infof(nil, "task: canceling pipeline: %d", id)
		cancel()

		scheduler.cancels.Delete(id)
		scheduler.pipelinesMap.Delete(id)
	}
}

func (scheduler *Scheduler) getPipelines() []int {
	result := []int{}

	scheduler.pipelinesMap.Range(func(id int, _ safemap.Any) bool {
		result = append(result, id)
		return true
	})

	return result
}

func (scheduler *Scheduler) shutdown() {
	log.Warningf(nil, "shutdown: terminating task routines")

	scheduler.cancel()

	for _, id := range scheduler.getPipelines() {
		log.Warningf(nil, "shutdown: canceling pipeline: %v", id)
		scheduler.cancelPipeline(id)
	}

	go func() {
		defer audit.Go("shutdown", "waiter")()

		for {
			pipelines := atomic.LoadInt64(&scheduler.pipelines)

			log.Warningf(
				nil,
				"shutdown: waiting for pipelines to be terminated: %d",
				pipelines,
			)

			if pipelines == 0 {
				break
			}

			time.Sleep(time.Second)
		}
	}()

	scheduler.pipelinesGroup.Wait()

	log.Warningf(nil, "shutdown: scheduler gracefully terminated")
}
