package docker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/docker/cli/cli/trust"
	docker_reference "github.com/docker/distribution/reference"
	docker_types "github.com/docker/docker/api/types"
	docker_container "github.com/docker/docker/api/types/container"
	docker_registrytypes "github.com/docker/docker/api/types/registry"
	docker_client "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/docker/pkg/term"
	"github.com/docker/docker/registry"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/utils"
)

const (
	CONTAINER_LABEL_KEY = "io.gate-runner"
)

var _ executor.Executor = (*Docker)(nil)

type Container struct {
	id   string
	name string
}

func (container Container) ID() string {
	return container.id
}

func (container Container) String() string {
	return container.name
}

type Docker struct {
	client *docker_client.Client

	network string
	volumes []string
}

func NewDocker(network string, volumes []string) (*Docker, error) {
	var err error

	docker := &Docker{}

	docker.network = network
	docker.volumes = volumes

	docker.client, err = docker_client.NewClientWithOpts(
		docker_client.FromEnv,
		docker_client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to initialize docker client",
		)
	}

	return docker, err
}

func (docker *Docker) Type() executor.ExecutorType {
	return executor.EXECUTOR_DOCKER
}

// Prepare pulls the job image, negotiating registry auth the same way the
// docker cli does.
func (docker *Docker) Prepare(
	ctx context.Context,
	opts executor.PrepareOptions,
) error {
	if opts.InfoConsumer != nil {
		opts.InfoConsumer("pulling image: " + opts.Image + "\n")
	}

	distributionRef, err := docker_reference.ParseNormalizedNamed(opts.Image)
	if err != nil {
		return karma.Format(err, "unable to parse ref: %s", opts.Image)
	}
	if docker_reference.IsNameOnly(distributionRef) {
		distributionRef = docker_reference.TagNameOnly(distributionRef)
	}

	var serverAddress string
	imgRefAndAuth, err := trust.GetImageReferencesAndAuth(
		ctx,
		nil,
		func(_ context.Context, index *docker_registrytypes.IndexInfo) docker_types.AuthConfig {
			configKey := index.Name
			if index.Official {
				configKey = registry.IndexServer
			}

			var found executor.AuthConfig
			for _, auths := range opts.Auths {
				if len(auths) > 0 {
					auth, ok := auths[configKey]
					if ok {
						found = auth
						serverAddress = configKey
					}
				}
			}

			return docker_types.AuthConfig{
				Username:      found.Username,
				Password:      found.Password,
				Auth:          found.Auth,
				ServerAddress: found.ServerAddress,
				IdentityToken: found.IdentityToken,
				RegistryToken: found.RegistryToken,
			}
		},
		distributionRef.String(),
	)
	if err != nil {
		return err
	}

	auth, err := docker.encodeAuth(serverAddress, *imgRefAndAuth.AuthConfig())
	if err != nil {
		return err
	}

	pullOptions := docker_types.ImagePullOptions{
		RegistryAuth: auth,
		PrivilegeFunc: func() (string, error) {
			return auth, nil
		},
	}

	reader, err := docker.client.ImagePull(
		ctx,
		distributionRef.String(),
		pullOptions,
	)
	if err != nil {
		return err
	}
	defer reader.Close()

	logwriter := callbackWriter{ctx: ctx, callback: opts.OutputConsumer}

	termFd, isTerm := term.GetFdInfo(logwriter)

	err = jsonmessage.DisplayJSONMessagesStream(
		reader, logwriter, termFd, isTerm, nil,
	)
	if err != nil {
		return karma.Format(
			err,
			"unable to read docker pull output",
		)
	}

	return nil
}

func (docker *Docker) Create(
	ctx context.Context,
	opts executor.CreateOptions,
) (executor.Container, error) {
	config := &docker_container.Config{
		Image: opts.Image,
		Labels: map[string]string{
			CONTAINER_LABEL_KEY: "true",
		},
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  true,
		Tty:          true,
	}

	hostConfig := &docker_container.HostConfig{
		Binds: append([]string{}, docker.volumes...),
	}

	for _, volume := range opts.Volumes {
		hostConfig.Binds = append(hostConfig.Binds, string(volume))
	}

	if docker.network != "" {
		hostConfig.NetworkMode = docker_container.NetworkMode(docker.network)
	}

	created, err := docker.client.ContainerCreate(
		ctx, config,
		hostConfig, nil, opts.Name,
	)
	if err != nil {
		return nil, err
	}

	id := created.ID

	err = docker.client.ContainerStart(
		ctx, id,
		docker_types.ContainerStartOptions{},
	)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to start created container",
		)
	}

	return Container{id: id, name: opts.Name}, nil
}

func (docker *Docker) Destroy(
	ctx context.Context,
	container executor.Container,
) error {
	if container == nil {
		return nil
	}

	err := docker.client.ContainerRemove(
		ctx, container.ID(),
		docker_types.ContainerRemoveOptions{
			Force: true,
		},
	)
	if err != nil {
		return err
	}

	return nil
}

func (docker *Docker) Exec(
	ctx context.Context,
	container executor.Container,
	opts executor.ExecOptions,
) error {
	exec, err := docker.client.ContainerExecCreate(
		ctx,
		container.ID(),
		docker_types.ExecConfig{
			AttachStderr: opts.AttachStderr,
			AttachStdout: opts.AttachStdout,
			AttachStdin:  opts.Stdin != nil,
			Env:          opts.Env,
			WorkingDir:   opts.WorkingDir,
			Cmd:          opts.Cmd,
		},
	)
	if err != nil {
		return err
	}

	response, err := docker.client.ContainerExecAttach(
		ctx, exec.ID,
		docker_types.ExecStartCheck{},
	)
	if err != nil {
		return err
	}
	defer response.Close()

	if opts.Stdin != nil {
		_, err = io.Copy(response.Conn, opts.Stdin)
		if err != nil {
			return karma.Format(err, "unable to write stdin of exec/attach")
		}

		response.CloseWrite()
	}

	writer := callbackWriter{ctx: ctx, callback: opts.OutputConsumer}

	_, err = stdcopy.StdCopy(writer, writer, response.Reader)
	if err != nil {
		return karma.Format(err, "unable to read stdout of exec/attach")
	}

	info, err := docker.client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return karma.Format(
			err,
			"unable to inspect container/exec",
		)
	}
	if info.ExitCode > 0 {
		return karma.
			Describe("exitcode", info.ExitCode).
			Format(
				nil,
				"exitcode is greater than zero",
			)
	}

	return nil
}

func (docker *Docker) DetectShell(
	ctx context.Context,
	container executor.Container,
) (string, error) {
	var output strings.Builder

	err := docker.Exec(ctx, container, executor.ExecOptions{
		Cmd:          []string{"sh", "-c", DEFAULT_DETECT_SHELL_COMMAND},
		AttachStdout: true,
		AttachStderr: true,
		OutputConsumer: func(text string) {
			output.WriteString(text)
		},
	})
	if err != nil {
		log.Debugf(
			karma.Describe("error", err),
			"shell detection failed, falling back to %s", DEFAULT_SHELL,
		)

		return DEFAULT_SHELL, nil
	}

	detected := strings.TrimSpace(output.String())
	if detected == "" {
		return DEFAULT_SHELL, nil
	}

	return detected, nil
}

func (docker *Docker) Cleanup() error {
	options := docker_types.ContainerListOptions{}

	containers, err := docker.client.ContainerList(context.Background(), options)
	if err != nil {
		return karma.Format(
			err,
			"unable to list containers",
		)
	}

	destroyed := 0
	for _, container := range containers {
		if _, ours := container.Labels[CONTAINER_LABEL_KEY]; ours {
			log.Infof(
				nil,
				"cleanup: destroying container %q %q in status: %s",
				container.ID,
				container.Names,
				container.Status,
			)

			err := docker.Destroy(
				context.Background(),
				Container{id: container.ID},
			)
			if err != nil {
				log.Errorf(
					karma.
						Describe("id", container.ID).
						Describe("name", container.Names).
						Reason(err),
					"unable to destroy container",
				)
			}

			destroyed++
		}
	}

	log.Infof(nil, "cleanup: destroyed %d containers", destroyed)

	return nil
}

func (docker *Docker) encodeAuth(
	serverAddress string,
	auth docker_types.AuthConfig,
) (string, error) {
	if auth.Auth != "" && auth.Username == "" && auth.Password == "" {
		decoded, err := base64.URLEncoding.DecodeString(auth.Auth)
		if err != nil {
			return "", karma.Format(
				err,
				"unable to decode 'auth' field as base64",
			)
		}

		chunks := strings.SplitN(string(decoded), ":", 2)
		if len(chunks) == 2 {
			auth.Auth = ""
			auth.Username = chunks[0]
			auth.Password = chunks[1]
			auth.ServerAddress = serverAddress
		}
	}

	if auth.Username == "" &&
		auth.Auth == "" &&
		auth.IdentityToken == "" &&
		auth.RegistryToken == "" &&
		auth.Password == "" &&
		auth.Email == "" {
		return "", nil
	}

	buffer, err := json.Marshal(auth)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to encode docker auth config",
		)
	}

	return base64.URLEncoding.EncodeToString(buffer), nil
}

type callbackWriter struct {
	ctx      context.Context
	callback executor.OutputConsumer
}

func (writer callbackWriter) Write(data []byte) (int, error) {
	if writer.callback == nil {
		return len(data), nil
	}

	if utils.IsDone(writer.ctx) {
		return 0, context.Canceled
	}

	writer.callback(string(data))

	return len(data), nil
}
