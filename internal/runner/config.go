package runner

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/kovetskiy/ko"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/set"
)

const (
	RUNNER_MODE_DOCKER = `docker`
	RUNNER_MODE_SHELL  = `shell`
)

var modes = set.NewStringSet(RUNNER_MODE_DOCKER, RUNNER_MODE_SHELL)

// ErrorNotConfigured means there is neither a config file nor a GATE_*
// environment, the operator never touched the runner after installing it.
var ErrorNotConfigured = errors.New("the runner is not configured")

type Config struct {
	ListenAddress string `yaml:"listen_address" env:"GATE_LISTEN_ADDRESS" default:":8585"`

	Log struct {
		Debug bool `yaml:"debug" env:"GATE_LOG_DEBUG"`
		Trace bool `yaml:"trace" env:"GATE_LOG_TRACE"`
	}

	Name                 string `yaml:"name"                   env:"GATE_NAME"`
	Mode                 string `yaml:"exec_mode"              env:"GATE_EXEC_MODE"              default:"docker" required:"true"`
	MaxParallelPipelines int64  `yaml:"max_parallel_pipelines" env:"GATE_MAX_PARALLEL_PIPELINES" default:"0"      required:"true"`
	MaxParallelJobs      int64  `yaml:"max_parallel_jobs"      env:"GATE_MAX_PARALLEL_JOBS"      default:"0"`
	PipelinesDir         string `yaml:"pipelines_dir"          env:"GATE_PIPELINES_DIR"`

	Docker struct {
		Network string   `yaml:"network" env:"GATE_DOCKER_NETWORK"`
		Volumes []string `yaml:"volumes" env:"GATE_DOCKER_VOLUMES"`

		// We also read GATE_DOCKER_AUTH_CONFIG but we do it manually to
		// avoid unmarshalling JSON as map
		AuthConfigJSON string `yaml:"auth_config"`

		auths executor.DockerAuths
	} `yaml:"docker"`

	Notify struct {
		WebhookURL string `yaml:"webhook_url" env:"DISCORD_WEBHOOK_URL"`
	} `yaml:"notify"`

	Coverage struct {
		CodecovAddress string `yaml:"codecov_address" env:"GATE_CODECOV_ADDRESS"`
		CodecovToken   string `yaml:"codecov_token"   env:"CODECOV_TOKEN"`
		CodacyAddress  string `yaml:"codacy_address"  env:"GATE_CODACY_ADDRESS"`
		CodacyToken    string `yaml:"codacy_token"    env:"CODACY_PROJECT_TOKEN"`
	} `yaml:"coverage"`
}

func (config *Config) GetDockerAuthConfig() executor.Auths {
	return config.Docker.auths.Auths
}

// Secrets returns the names of the environment values that must never
// appear in job logs.
func (config *Config) Secrets() []string {
	return []string{
		"DISCORD_WEBHOOK_URL",
		"CODECOV_TOKEN",
		"CODACY_PROJECT_TOKEN",
	}
}

func LoadConfig(path string, opts ...interface{}) (*Config, error) {
	log.Infof(karma.Describe("path", path), "loading configuration")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if os.Getenv("GATE_EXEC_MODE") == "" {
			return nil, ErrorNotConfigured
		}
	}

	args := append([]interface{}{yaml.Unmarshal}, opts...)

	var config Config
	err := ko.Load(path, &config, args...)
	if err != nil {
		return nil, err
	}

	if !modes.Has(config.Mode) {
		return nil, karma.
			Describe("known", modes.List()).
			Format(nil, "unknown exec mode specified: %q", config.Mode)
	}

	if config.Mode == RUNNER_MODE_SHELL {
		log.Warning(
			"Shell mode specified, all commands will be " +
				"executed on the local host with current process permissions",
		)
	}

	if config.MaxParallelPipelines == 0 {
		config.MaxParallelPipelines = int64(runtime.NumCPU())

		log.Warningf(
			nil,
			"max_parallel_pipelines is not specified, "+
				"number of CPU will be used instead: %d",
			config.MaxParallelPipelines,
		)
	}

	if config.MaxParallelJobs == 0 {
		config.MaxParallelJobs = int64(runtime.NumCPU())
	}

	if config.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, karma.Format(err, "unable to obtain hostname")
		}

		config.Name = hostname
	}

	if config.PipelinesDir == "" {
		config.PipelinesDir = DEFAULT_PIPELINES_DIR
	}

	if !filepath.IsAbs(config.PipelinesDir) {
		config.PipelinesDir, err = filepath.Abs(config.PipelinesDir)
		if err != nil {
			return nil, karma.Format(
				err,
				"unable to get absolute path of %q", config.PipelinesDir,
			)
		}
	}

	var asEnv bool
	if config.Docker.AuthConfigJSON == "" {
		asEnv = true
		config.Docker.AuthConfigJSON = os.Getenv("GATE_DOCKER_AUTH_CONFIG")
	}

	if config.Docker.AuthConfigJSON != "" {
		if err := json.Unmarshal(
			[]byte(config.Docker.AuthConfigJSON), &config.Docker.auths,
		); err != nil {
			var origin string
			if asEnv {
				origin = "the GATE_DOCKER_AUTH_CONFIG environment variable"
			} else {
				origin = "the docker.auth_config config parameter"
			}

			return nil, karma.Format(
				err,
				"unable to decode JSON in the docker auth config specified as %s",
				origin,
			)
		}
	}

	return &config, nil
}
