package notify

import (
	"errors"
	"net/http"
	"text/template"
	"time"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/gate-runner/internal/api"
	"github.com/reconquest/gate-runner/internal/status"
	"github.com/seletskiy/tplutil"
)

// Event is what the webhook receives: the outcome of exactly one finished
// job. The outcome word is derived from the final status: "success" for
// SUCCESS, "failure" for everything else.
type Event struct {
	Pipeline string
	Job      string
	Status   status.Status
	Duration time.Duration
}

func (event Event) Outcome() string {
	return event.Status.Outcome()
}

var templateMessage = template.Must(template.New("").Parse(
	"**{{ .Pipeline }}** / {{ .Job }}: " +
		"{{ .Outcome }}" +
		"{{ if .Duration }} in {{ .Duration }}{{ end }}",
))

// Notifier posts job outcomes to a Discord-compatible webhook. The
// dispatch is best effort: the caller logs failures and never lets them
// change the already-determined job outcome.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
}

type payload struct {
	Content string `json:"content"`
}

func (notifier *Notifier) Notify(event Event) error {
	if notifier.webhookURL == "" {
		return errors.New("webhook url is not configured")
	}

	message, err := tplutil.ExecuteToString(
		templateMessage,
		map[string]interface{}{
			"Pipeline": event.Pipeline,
			"Job":      event.Job,
			"Outcome":  event.Outcome(),
			"Duration": event.Duration.Round(time.Second),
		},
	)
	if err != nil {
		return karma.Format(
			err,
			"unable to render notification message",
		)
	}

	err = api.NewRequest(notifier.client).
		BaseURL(notifier.webhookURL).
		POST().
		Payload(payload{Content: message}).
		ExpectStatus(http.StatusOK, http.StatusNoContent).
		Do()
	if err != nil {
		return karma.Format(
			err,
			"unable to post notification to webhook",
		)
	}

	return nil
}
