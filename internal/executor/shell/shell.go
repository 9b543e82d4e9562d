package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/set"
	"github.com/reconquest/gate-runner/internal/utils"
)

var _ executor.Executor = (*Shell)(nil)

// Shell runs gate commands directly on the host. It is used by the
// one-shot run command and by configs with exec_mode: shell; there is no
// image and no isolation beyond the per-job work dir, so matrix cells
// share the host runtime.
type Shell struct{}

func NewShell() *Shell {
	return &Shell{}
}

// Box stands in for a container in host mode. It only tracks the
// processes started for the job so Destroy can kill whatever is still
// running when the pipeline gets canceled.
type Box struct {
	id        string
	processes *set.ExecCmdSet
}

func (box *Box) String() string {
	return box.id
}

func (box *Box) ID() string {
	return box.id
}

func (shell *Shell) Type() executor.ExecutorType {
	return executor.EXECUTOR_SHELL
}

// Prepare is a no-op, there is no image to pull in host mode.
func (shell *Shell) Prepare(
	ctx context.Context,
	opts executor.PrepareOptions,
) error {
	return nil
}

func (shell *Shell) Create(
	ctx context.Context,
	opts executor.CreateOptions,
) (executor.Container, error) {
	return &Box{
		id:        opts.Name,
		processes: set.NewExecCmdSet(),
	}, nil
}

func (shell *Shell) Destroy(
	ctx context.Context,
	container executor.Container,
) error {
	for _, cmd := range unbox(container).processes.List() {
		fact := karma.Describe("cmd", cmd.Args)

		log.Tracef(fact, "killing job process")

		err := cmd.Process.Kill()
		if err != nil {
			log.Tracef(fact.Describe("error", err), "kill signal not delivered")
		}
	}

	return nil
}

func (shell *Shell) Exec(
	ctx context.Context,
	container executor.Container,
	opts executor.ExecOptions,
) error {
	if len(opts.Cmd) == 0 {
		return errors.New("an empty command specified")
	}

	box := unbox(container)

	log.Tracef(nil, "host exec: %s %s", opts.Cmd[0], opts.Cmd[1:])

	cmd := exec.CommandContext(ctx, opts.Cmd[0], opts.Cmd[1:]...)
	cmd.Env = opts.Env
	cmd.Dir = opts.WorkingDir
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	// the consumer is wired straight into the command: Wait copies the
	// output itself and returns only after the last chunk landed, so even
	// a command that exits immediately loses nothing. The pointer matters,
	// it lets os/exec see both streams as one writer and serialize them.
	output := &consumerWriter{ctx: ctx, consume: opts.OutputConsumer}
	if opts.AttachStdout {
		cmd.Stdout = output
	}
	if opts.AttachStderr {
		cmd.Stderr = output
	}

	err := cmd.Start()
	if err != nil {
		return err
	}

	box.processes.Put(cmd)
	defer box.processes.Delete(cmd)

	return cmd.Wait()
}

// DetectShell prefers bash (powershell on windows) when the host has it,
// same preference order the docker executor applies inside images.
func (shell *Shell) DetectShell(
	ctx context.Context,
	container executor.Container,
) (string, error) {
	_, err := exec.LookPath(PREFERRED_SHELL)
	if err != nil {
		return DEFAULT_SHELL, nil
	}

	return PREFERRED_SHELL, nil
}

// Cleanup is a no-op: host processes do not outlive the runner the way
// containers do.
func (shell *Shell) Cleanup() error {
	return nil
}

// consumerWriter feeds command output to the job's log consumer and turns
// context cancellation into a copy error so readers stop promptly.
type consumerWriter struct {
	ctx     context.Context
	consume executor.OutputConsumer
}

func (writer consumerWriter) Write(data []byte) (int, error) {
	if utils.IsDone(writer.ctx) {
		return 0, context.Canceled
	}

	if writer.consume != nil {
		writer.consume(string(data))
	}

	return len(data), nil
}

func unbox(container executor.Container) *Box {
	box, ok := container.(*Box)
	if !ok {
		panic("BUG: unexpected container type: " + fmt.Sprintf("%T", container))
	}

	return box
}
