package runner

const (
	DEFAULT_PIPELINES_DIR = `C:\gate-runner\pipelines`
	DEFAULT_CONFIG_PATH   = `C:\gate-runner\gate-runner.conf`
)
