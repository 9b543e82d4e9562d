package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/sign-go"
	"github.com/reconquest/gate-runner/internal/pipeline"
	"github.com/reconquest/gate-runner/internal/report"
	"github.com/reconquest/gate-runner/internal/status"
	"github.com/reconquest/gate-runner/internal/tasks"
)

// runOnce executes the pipeline of a local directory synchronously, the
// exit code reflects the aggregate outcome.
func runOnce() error {
	config := loadConfig()

	execer, err := newExecutor(config)
	if err != nil {
		return karma.Format(err, "unable to initialize executor")
	}

	err = execer.Cleanup()
	if err != nil {
		return karma.Format(err, "unable to cleanup after previous runs")
	}

	dir, err := filepath.Abs(*runDir)
	if err != nil {
		return karma.Format(err, "unable to get absolute path of %q", *runDir)
	}

	name := *runName
	if name == "" {
		name = filepath.Base(dir)
	}

	task := tasks.PipelineRun{
		ID:       os.Getpid(),
		Name:     name,
		Source:   tasks.Source{Dir: dir},
		Filename: *runPipeline,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sign.Notify(func(signal os.Signal) bool {
		log.Warningf(nil, "got signal: %s, canceling the pipeline", signal)
		cancel()
		return false
	}, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

	process := pipeline.NewProcess(
		ctx,
		ctx,
		execer,
		config,
		task,
		nil,
		log.NewChildWithPrefix(fmt.Sprintf("[pipeline:%d]", task.ID)),
	)

	err = process.Run()
	if err != nil {
		log.Error(err)
	}

	if dir := process.ReportDir(); dir != "" {
		log.Infof(nil, "run report: %s", filepath.Join(dir, report.Filename))
	}

	if process.Status() != status.SUCCESS {
		os.Exit(1)
	}

	return nil
}
