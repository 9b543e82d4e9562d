package runner

import (
	"fmt"
	"os"
	"text/template"

	"github.com/reconquest/pkg/log"
	"github.com/seletskiy/tplutil"
)

var templateNotConfigured = template.Must(template.New("").Parse(`
The gate-runner was successfully installed but it is not configured yet.

Create the configuration file, which by default is located in
{{ .ConfigPath }}:

 exec_mode: docker
 pipelines_dir: {{ .PipelinesDir }}
 notify:
   webhook_url: <discord-webhook-url-here>
 coverage:
   codecov_token: <codecov-token-here>
   codacy_token: <codacy-project-token-here>

Alternatively, pass the same parameters as environment variables:

 GATE_EXEC_MODE=docker \
 DISCORD_WEBHOOK_URL=<discord-webhook-url-here> \
 CODECOV_TOKEN=<codecov-token-here> \
 CODACY_PROJECT_TOKEN=<codacy-project-token-here> \
    gate-runner serve
`))

func ShowMessageNotConfigured(config *Config) {
	pipelinesDir := DEFAULT_PIPELINES_DIR
	if config != nil && config.PipelinesDir != "" {
		pipelinesDir = config.PipelinesDir
	}

	message, err := tplutil.ExecuteToString(
		templateNotConfigured,
		map[string]interface{}{
			"ConfigPath":   DEFAULT_CONFIG_PATH,
			"PipelinesDir": pipelinesDir,
		},
	)
	if err != nil {
		log.Errorf(err, "unable to show templated message")

		fmt.Fprintln(os.Stderr, "the gate-runner is not configured")
		return
	}

	fmt.Fprintln(os.Stderr, message)
}
