package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/kovetskiy/ko"
	"github.com/kovetskiy/lorg"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/builtin"
	"github.com/reconquest/gate-runner/internal/platform"
	"github.com/reconquest/gate-runner/internal/runner"
)

// ServiceController wraps kardianos/service for the `service` subcommands.
type ServiceController struct {
	svc service.Service
}

func (ctl *ServiceController) lazyInit() error {
	if ctl.svc != nil {
		return nil
	}

	if platform.CURRENT != platform.WINDOWS {
		return errors.New(
			"The service commands are not yet implemented for linux",
		)
	}

	svc, err := service.New(nopProgram{}, &service.Config{
		Name:        "gate-runner",
		DisplayName: "gate-runner",
		Description: "Runs quality-gate pipelines",
		Executable:  os.Args[0],
		Arguments:   []string{"service", "run", "--config", *configPath},
	})
	if err != nil {
		return err
	}

	ctl.svc = svc

	return nil
}

func (ctl *ServiceController) control(action string, past string) error {
	err := ctl.lazyInit()
	if err != nil {
		return err
	}

	err = service.Control(ctl.svc, action)
	if err != nil {
		return karma.Format(
			err,
			"unable to %s gate-runner as a system service", action,
		)
	}

	log.Infof(nil, "gate-runner has been %s as a system service", past)

	return nil
}

// Install validates the config before registering the service so a broken
// setup fails here and not at boot.
func (ctl *ServiceController) Install() error {
	config, err := runner.LoadConfig(*configPath, ko.RequireFile(true))
	if err != nil {
		if err == runner.ErrorNotConfigured {
			runner.ShowMessageNotConfigured(config)
			os.Exit(1)
		}

		return karma.Format(
			err,
			"unable to load & validate config",
		)
	}

	return ctl.control("install", "installed")
}

func (ctl *ServiceController) Uninstall() error {
	return ctl.control("uninstall", "uninstalled")
}

func (ctl *ServiceController) Start() error {
	return ctl.control("start", "started")
}

func (ctl *ServiceController) Stop() error {
	return ctl.control("stop", "stopped")
}

func (ctl *ServiceController) Status() error {
	err := ctl.lazyInit()
	if err != nil {
		return err
	}

	status, err := ctl.svc.Status()
	if err != nil {
		return err
	}

	switch status {
	case service.StatusRunning:
		fmt.Println("running")
	case service.StatusStopped:
		fmt.Println("stopped")
	default:
		fmt.Println("unknown")
	}

	return nil
}

// Run hands the process over to the service manager and bridges the
// runner's log into the system log. The returned channel closes when the
// manager asks the service to stop.
func (ctl *ServiceController) Run() (chan struct{}, error) {
	err := ctl.lazyInit()
	if err != nil {
		return nil, err
	}

	systemLogger, err := ctl.svc.SystemLogger(nil)
	if err != nil {
		log.Errorf(err, "unable to setup the system logger")
	} else {
		err = systemLogger.Infof("gate-runner %s starting", builtin.Version)

		log.GetLogger().SetSender(
			func(level lorg.Level, event karma.Hierarchical) error {
				text := level.String() + " " + event.String()

				switch level {
				case lorg.LevelError, lorg.LevelFatal:
					err = systemLogger.Error(text)
				case lorg.LevelWarning:
					err = systemLogger.Warning(text)
				default:
					err = systemLogger.Info(text)
				}

				if err != nil {
					fmt.Fprintln(
						os.Stderr,
						"unable to send logs to system log:", err,
					)
				}

				return nil
			},
		)
	}

	stopped := make(chan struct{})
	go func() {
		err := ctl.svc.Run()
		if err != nil {
			log.Errorf(
				err,
				"unable to start the program as a system service",
			)
		} else {
			close(stopped)
		}
	}()

	return stopped, nil
}

// nopProgram satisfies service.Interface; the actual serving loop lives in
// serve(), the manager only needs start/stop hooks.
type nopProgram struct{}

func (nopProgram) Start(_ service.Service) error { return nil }

func (nopProgram) Stop(_ service.Service) error { return nil }
