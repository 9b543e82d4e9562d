package main

import (
	"os"
	"syscall"

	cli "gopkg.in/alecthomas/kingpin.v2"

	"github.com/kovetskiy/ko"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/sign-go"
	"github.com/reconquest/gate-runner/internal/audit"
	"github.com/reconquest/gate-runner/internal/builtin"
	"github.com/reconquest/gate-runner/internal/runner"
)

var (
	configPath *string

	runDir      *string
	runPipeline *string
	runName     *string
)

func main() {
	log.Infof(karma.Describe("version", builtin.Version), "starting gate-runner")

	var svcctl ServiceController

	app := cli.New(
		"gate-runner",
		"Gate Runner executes quality-gate pipelines: "+
			"install, test, style, docstyle and lint gates over a "+
			"runtime/system matrix.",
	).Version(builtin.Version)

	configPath = app.Flag("config", "Use the given configuration file").
		Short('c').
		Default(runner.DEFAULT_CONFIG_PATH).
		String()

	actions := commandTable{}

	cmdRun := app.Command(
		"run",
		"Run the pipeline of the given directory once and exit",
	)

	runDir = cmdRun.Arg("dir", "Directory with the pipeline file").
		Default(".").
		String()

	runPipeline = cmdRun.Flag("pipeline", "Pipeline file to read").
		Short('p').
		String()

	runName = cmdRun.Flag("name", "Pipeline name shown in notifications").
		String()

	actions.bind(cmdRun, runOnce)

	actions.bind(
		app.Command("serve", "Serve the task endpoint and run pipelines").
			Default(),
		func() error {
			return serve(make(chan struct{}))
		},
	)

	svc := app.Command(
		"service",
		"Control the system service",
	)

	actions.bind(
		svc.Command("install", "Install the system service"),
		svcctl.Install,
	)
	actions.bind(
		svc.Command("start", "Start the system service"),
		svcctl.Start,
	)
	actions.bind(
		svc.Command("stop", "Stop the system service"),
		svcctl.Stop,
	)
	actions.bind(
		svc.Command("status", "Get a status of the system service"),
		svcctl.Status,
	)
	actions.bind(
		svc.Command("uninstall", "Uninstall the system service"),
		svcctl.Uninstall,
	)
	actions.bind(
		svc.Command("run", "Run as the system service").Hidden(),
		func() error {
			shutdown, err := svcctl.Run()
			if err != nil {
				return err
			}

			return serve(shutdown)
		},
	)

	err := actions.run(app)
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig() *runner.Config {
	config, err := runner.LoadConfig(*configPath, ko.RequireFile(false))
	if err != nil {
		if err == runner.ErrorNotConfigured {
			runner.ShowMessageNotConfigured(config)
			os.Exit(1)
		}

		log.Fatal(err)
	}

	if config.Log.Debug {
		log.SetLevel(log.LevelDebug)
	}

	if config.Log.Trace {
		log.SetLevel(log.LevelTrace)
	}

	if os.Getenv("GATE_AUDIT_GOROUTINES") == "1" {
		audit.Start()
	}

	return config
}

func serve(serviceShutdown chan struct{}) error {
	config := loadConfig()

	log.Infof(nil, "runner name: %s", config.Name)

	daemon := NewDaemon(config)
	daemon.Start()

	go sign.Notify(func(signal os.Signal) bool {
		log.Warningf(nil, "got signal: %s, shutting down runner", signal)
		daemon.Terminate()
		return false
	}, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

	select {
	case <-daemon.Terminated():
		// exit

	case <-serviceShutdown:
		log.Warningf(nil, "system service stopped, shutting down runner")
	}

	daemon.Shutdown()
	log.Warningf(nil, "shutdown: runner gracefully terminated")

	return nil
}
