package runner

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/kovetskiy/ko"
	"github.com/stretchr/testify/assert"
)

func write(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gate-runner.conf")

	err := ioutil.WriteFile(path, []byte(contents), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	test := assert.New(t)

	config, err := LoadConfig(write(t, "exec_mode: shell\n"))
	test.NoError(err)

	test.Equal(RUNNER_MODE_SHELL, config.Mode)
	test.True(config.MaxParallelPipelines > 0)
	test.True(config.MaxParallelJobs > 0)

	hostname, _ := os.Hostname()
	test.Equal(hostname, config.Name)

	test.True(filepath.IsAbs(config.PipelinesDir))
}

func TestLoadConfig_UnknownMode(t *testing.T) {
	test := assert.New(t)

	_, err := LoadConfig(write(t, "exec_mode: qemu\n"))
	test.Error(err)
	test.Contains(err.Error(), "unknown exec mode")
}

func TestLoadConfig_NotConfigured(t *testing.T) {
	test := assert.New(t)

	mode := os.Getenv("GATE_EXEC_MODE")
	os.Unsetenv("GATE_EXEC_MODE")
	defer os.Setenv("GATE_EXEC_MODE", mode)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.conf"))
	test.Equal(ErrorNotConfigured, err)
}

func TestLoadConfig_RequiredFileMissingIsError(t *testing.T) {
	test := assert.New(t)

	mode := os.Getenv("GATE_EXEC_MODE")
	os.Setenv("GATE_EXEC_MODE", "shell")
	defer os.Setenv("GATE_EXEC_MODE", mode)

	path := filepath.Join(t.TempDir(), "nonexistent.conf")

	_, err := LoadConfig(path, ko.RequireFile(true))
	test.Error(err)
	test.NotEqual(ErrorNotConfigured, err)

	config, err := LoadConfig(path, ko.RequireFile(false))
	test.NoError(err)
	test.Equal(RUNNER_MODE_SHELL, config.Mode)
}

func TestLoadConfig_DockerAuthConfig(t *testing.T) {
	test := assert.New(t)

	config, err := LoadConfig(write(t, `
exec_mode: docker
docker:
  auth_config: '{"auths": {"registry.example.com": {"username": "gate", "password": "secret"}}}'
`))
	test.NoError(err)

	auths := config.GetDockerAuthConfig()
	test.Contains(auths, "registry.example.com")
	test.Equal("gate", auths["registry.example.com"].Username)
}

func TestLoadConfig_BrokenDockerAuthConfig(t *testing.T) {
	test := assert.New(t)

	_, err := LoadConfig(write(t, `
exec_mode: docker
docker:
  auth_config: '{broken'
`))
	test.Error(err)
	test.Contains(err.Error(), "docker auth config")
}

func TestConfig_Secrets(t *testing.T) {
	test := assert.New(t)

	config := &Config{}

	secrets := config.Secrets()
	test.Contains(secrets, "DISCORD_WEBHOOK_URL")
	test.Contains(secrets, "CODECOV_TOKEN")
	test.Contains(secrets, "CODACY_PROJECT_TOKEN")
}
