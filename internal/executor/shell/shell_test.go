package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/reconquest/gate-runner/internal/executor"
)

func TestShell_Exec_EmptyCommandIsError(t *testing.T) {
	test := assert.New(t)

	shell := NewShell()

	box, err := shell.Create(context.Background(), executor.CreateOptions{})
	test.NoError(err)

	err = shell.Exec(context.Background(), box, executor.ExecOptions{})
	test.Error(err)
}

func TestShell_Exec_RunsInWorkingDirWithEnv(t *testing.T) {
	test := assert.New(t)

	shell := NewShell()
	ctx := context.Background()

	box, err := shell.Create(ctx, executor.CreateOptions{Name: "job"})
	test.NoError(err)

	output := ""
	err = shell.Exec(ctx, box, executor.ExecOptions{
		Cmd:          []string{"sh", "-c", "echo $PWD $GATE"},
		Env:          []string{"GATE=lint"},
		WorkingDir:   t.TempDir(),
		AttachStdout: true,
		OutputConsumer: func(text string) {
			output += text
		},
	})
	test.NoError(err)
	test.Contains(output, "lint")
}

func TestShell_Exec_FastCommandOutputIsNotLost(t *testing.T) {
	test := assert.New(t)

	shell := NewShell()
	ctx := context.Background()

	box, err := shell.Create(ctx, executor.CreateOptions{Name: "fast"})
	test.NoError(err)

	for i := 0; i < 20; i++ {
		marker := fmt.Sprintf("gate-%d-passed", i)

		output := ""
		err := shell.Exec(ctx, box, executor.ExecOptions{
			Cmd:          []string{"sh", "-c", "echo " + marker},
			AttachStdout: true,
			AttachStderr: true,
			OutputConsumer: func(text string) {
				output += text
			},
		})
		test.NoError(err)
		test.Contains(output, marker)
	}
}

func TestShell_Exec_ConcurrentJobsDoNotMixOutput(t *testing.T) {
	test := assert.New(t)

	shell := NewShell()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	box, err := shell.Create(ctx, executor.CreateOptions{Name: "matrix"})
	test.NoError(err)

	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			marker := fmt.Sprintf("cell-%d-done", i)

			output := ""
			err := shell.Exec(ctx, box, executor.ExecOptions{
				Cmd:          []string{"sh", "-c", "echo " + marker},
				AttachStdout: true,
				AttachStderr: true,
				OutputConsumer: func(text string) {
					output += text
				},
			})
			test.NoError(err)
			test.Contains(output, marker)
		}(i)
	}

	wg.Wait()

	test.NoError(shell.Destroy(ctx, box))
}

func TestShell_DetectShell_AlwaysNamesSomething(t *testing.T) {
	test := assert.New(t)

	shell := NewShell()

	detected, err := shell.DetectShell(context.Background(), nil)
	test.NoError(err)
	test.True(
		detected == PREFERRED_SHELL || detected == DEFAULT_SHELL,
		"unexpected shell: %s", detected,
	)
	test.False(strings.Contains(detected, " "))
}
