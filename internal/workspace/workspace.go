package workspace

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/reconquest/gate-runner/internal/executor"
	"github.com/reconquest/gate-runner/internal/sshkey"
	"github.com/reconquest/gate-runner/internal/tasks"
)

const (
	SUBDIR_SRC  = "src"
	SUBDIR_JOBS = "jobs"
	SUBDIR_SSH  = "ssh"
)

// Workspace is the run directory of one pipeline under pipelines_dir. It
// holds a single checkout of the source and a private copy of it for
// every matrix job, so that jobs never observe each other's writes.
//
//go:generate gonstructor -type Workspace
type Workspace struct {
	pipelinesDir   string
	name           string
	sshKey         *sshkey.Key
	promptConsumer executor.PromptConsumer
	outputConsumer executor.OutputConsumer

	baseDir string `gonstructor:"-"`
	srcDir  string `gonstructor:"-"`
}

// Dir is the run directory; the run report lands next to the checkout.
func (workspace *Workspace) Dir() string {
	return workspace.baseDir
}

func (workspace *Workspace) SrcDir() string {
	return workspace.srcDir
}

// Prepare creates the run directory and fills the src subdir: either a
// copy of the local source dir or a fresh clone at the given commit.
func (workspace *Workspace) Prepare(ctx context.Context, source tasks.Source) error {
	err := source.Validate()
	if err != nil {
		return err
	}

	workspace.baseDir = filepath.Join(workspace.pipelinesDir, workspace.name)
	workspace.srcDir = filepath.Join(workspace.baseDir, SUBDIR_SRC)

	err = os.MkdirAll(workspace.srcDir, 0o755)
	if err != nil {
		return karma.Format(
			err,
			"unable to create workspace directory: %s", workspace.srcDir,
		)
	}

	if source.Dir != "" {
		return workspace.copyLocal(source.Dir)
	}

	return workspace.clone(ctx, source)
}

// JobDir returns an isolated copy of the checkout for the given job.
func (workspace *Workspace) JobDir(job string) (string, error) {
	dir := filepath.Join(workspace.baseDir, SUBDIR_JOBS, job)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to create job directory: %s", dir,
		)
	}

	err = copyTree(workspace.srcDir, dir)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to copy checkout into job directory: %s", dir,
		)
	}

	return dir, nil
}

// Clean throws away the checkouts and the job copies but keeps the run
// directory itself, so the run report written next to them survives.
func (workspace *Workspace) Clean() {
	if workspace.baseDir == "" {
		return
	}

	for _, subdir := range []string{SUBDIR_SRC, SUBDIR_JOBS, SUBDIR_SSH} {
		path := filepath.Join(workspace.baseDir, subdir)

		err := os.RemoveAll(path)
		if err != nil {
			log.Errorf(
				err,
				"unable to cleanup workspace subdir: %s", path,
			)
		}
	}
}

func (workspace *Workspace) Destroy() {
	if workspace.baseDir == "" {
		return
	}

	log.Debugf(nil, "cleaning up workspace: %s", workspace.baseDir)

	err := os.RemoveAll(workspace.baseDir)
	if err != nil {
		log.Errorf(
			err,
			"unable to cleanup workspace: %s", workspace.baseDir,
		)
	}
}

func (workspace *Workspace) copyLocal(dir string) error {
	source, err := filepath.Abs(dir)
	if err != nil {
		return karma.Format(
			err,
			"unable to get absolute path of %q", dir,
		)
	}

	info, err := os.Stat(source)
	if err != nil {
		return karma.Format(
			err,
			"unable to stat source dir: %s", source,
		)
	}

	if !info.IsDir() {
		return karma.
			Describe("path", source).
			Format(nil, "source is not a directory")
	}

	return copyTree(source, workspace.srcDir)
}

func (workspace *Workspace) clone(ctx context.Context, source tasks.Source) error {
	env := os.Environ()

	if workspace.sshKey != nil && isSSHCloneURL(source.CloneURL) {
		keyPath, err := workspace.sshKey.Materialize(
			filepath.Join(workspace.baseDir, SUBDIR_SSH),
		)
		if err != nil {
			return err
		}

		env = append(env, "GIT_SSH_COMMAND="+sshkey.GitSSHCommand(keyPath))
	}

	commands := [][]string{
		{"git", "clone", "--recursive", source.CloneURL, workspace.srcDir},
	}

	if source.Commit != "" {
		commands = append(
			commands,
			[]string{"git", "-C", workspace.srcDir, "checkout", source.Commit},
		)
	}

	for _, command := range commands {
		if workspace.promptConsumer != nil {
			workspace.promptConsumer(command)
		}

		err := workspace.exec(ctx, env, command)
		if err != nil {
			return karma.
				Describe("cmd", command).
				Format(err, "unable to setup repository")
		}
	}

	return nil
}

func (workspace *Workspace) exec(
	ctx context.Context,
	env []string,
	command []string,
) error {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Env = env
	cmd.Stdout = consumerWriter{workspace.outputConsumer}
	cmd.Stderr = consumerWriter{workspace.outputConsumer}

	return cmd.Run()
}

func isSSHCloneURL(url string) bool {
	return strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://")
}

type consumerWriter struct {
	callback executor.OutputConsumer
}

func (writer consumerWriter) Write(data []byte) (int, error) {
	if writer.callback != nil {
		writer.callback(string(data))
	}

	return len(data), nil
}

func copyTree(src string, dst string) error {
	return filepath.Walk(
		src,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			relative, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}

			target := filepath.Join(dst, relative)

			if info.IsDir() {
				return os.MkdirAll(target, info.Mode().Perm())
			}

			if !info.Mode().IsRegular() {
				// sockets and device files have no business in a source
				// tree, symlinks are skipped to keep jobs inside their dir
				return nil
			}

			return copyFile(path, target, info.Mode().Perm())
		},
	)
}

func copyFile(src string, dst string, mode os.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	_, err = io.Copy(target, source)
	if err != nil {
		target.Close()
		return err
	}

	return target.Close()
}
