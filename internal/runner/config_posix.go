// +build !windows

package runner

const (
	DEFAULT_PIPELINES_DIR = "/var/lib/gate-runner/pipelines"
	DEFAULT_CONFIG_PATH   = "/etc/gate-runner/gate-runner.conf"
)
