package main

import (
	"context"
	"net/http"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/runner"
)

// Daemon is the serve-mode runner: an http endpoint that accepts pipeline
// tasks and a scheduler that runs them.
type Daemon struct {
	config     *runner.Config
	scheduler  *Scheduler
	server     *http.Server
	terminated chan struct{}
}

func NewDaemon(config *runner.Config) *Daemon {
	return &Daemon{
		config:     config,
		terminated: make(chan struct{}),
	}
}

func (daemon *Daemon) Start() {
	err := daemon.startScheduler()
	if err != nil {
		log.Fatalf(err, "unable to start scheduler")
	}

	daemon.startServer()
}

func (daemon *Daemon) startServer() {
	handler := NewWebHandler(daemon)

	daemon.server = &http.Server{
		Addr:    daemon.config.ListenAddress,
		Handler: handler,
	}

	go func() {
		log.Infof(
			karma.Describe("address", daemon.config.ListenAddress),
			"starting http server",
		)

		err := daemon.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf(
				err,
				"unable to listen and serve on %s",
				daemon.config.ListenAddress,
			)
		}
	}()
}

func (daemon *Daemon) Terminate() {
	close(daemon.terminated)
}

func (daemon *Daemon) Terminated() <-chan struct{} {
	return daemon.terminated
}

func (daemon *Daemon) Shutdown() {
	if daemon.server != nil {
		err := daemon.server.Shutdown(context.Background())
		if err != nil {
			log.Errorf(err, "unable to gracefully shutdown http server")
		}
	}

	if daemon.scheduler != nil {
		daemon.scheduler.shutdown()
	}
}
