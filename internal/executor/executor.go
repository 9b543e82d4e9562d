package executor

import (
	"context"
	"io"
)

// Executor is where gate commands run. The docker implementation gives
// every matrix job a container of its own; the shell implementation runs
// commands on the local host and is meant for one-shot runs.
type Executor interface {
	Type() ExecutorType

	// Prepare fetches whatever the environment needs before Create, for
	// docker that is the image pull.
	Prepare(context.Context, PrepareOptions) error

	Create(context.Context, CreateOptions) (Container, error)
	Destroy(context.Context, Container) error

	Exec(context.Context, Container, ExecOptions) error

	// DetectShell names the shell gate commands are wrapped with when the
	// pipeline file does not pin one.
	DetectShell(context.Context, Container) (string, error)

	// Cleanup destroys leftovers of previous runner processes.
	Cleanup() error
}

type ExecutorType string

const (
	EXECUTOR_DOCKER ExecutorType = "EXECUTOR_DOCKER"
	EXECUTOR_SHELL  ExecutorType = "EXECUTOR_SHELL"
)

// Container is one isolated job environment. The shell executor returns a
// stub here, isolation in that mode comes from the per-job work dir only.
type Container interface {
	String() string
	ID() string
}

// Volume is a bind mount in docker "src:dst" notation.
type Volume string

type (
	OutputConsumer func(string)
	PromptConsumer func([]string)
)

type PrepareOptions struct {
	Image          string
	OutputConsumer OutputConsumer
	InfoConsumer   OutputConsumer

	// Auths are tried in order: runner config, then the auth pushed with
	// the task, then the one declared in the pipeline file.
	Auths []Auths
}

type CreateOptions struct {
	Name    string
	Image   string
	Volumes []Volume
}

type ExecOptions struct {
	Cmd            []string
	Env            []string
	WorkingDir     string
	AttachStdout   bool
	AttachStderr   bool
	OutputConsumer OutputConsumer
	Stdin          io.Reader
}

type Auths map[string]AuthConfig

type AuthConfig struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Auth     string `json:"auth,omitempty"`

	ServerAddress string `json:"serveraddress,omitempty"`

	// IdentityToken is used to authenticate the user and get
	// an access token for the registry.
	IdentityToken string `json:"identitytoken,omitempty"`

	// RegistryToken is a bearer token to be sent to a registry
	RegistryToken string `json:"registrytoken,omitempty"`
}

// DockerAuths is the ~/.docker/config.json shaped envelope the runner
// config and DOCKER_AUTH_CONFIG variables carry.
type DockerAuths struct {
	Auths Auths
}
