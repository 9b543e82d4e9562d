package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reconquest/gate-runner/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_Notify_PostsOutcome(t *testing.T) {
	test := assert.New(t)

	var (
		requests int
		body     payload
	)

	server := httptest.NewServer(http.HandlerFunc(
		func(response http.ResponseWriter, request *http.Request) {
			requests++
			json.NewDecoder(request.Body).Decode(&body)
			response.WriteHeader(http.StatusNoContent)
		},
	))
	defer server.Close()

	notifier := NewNotifier(server.URL)

	err := notifier.Notify(Event{
		Pipeline: "pygot",
		Job:      "3.7/linux",
		Status:   status.SUCCESS,
		Duration: 90 * time.Second,
	})
	test.NoError(err)
	test.Equal(1, requests)
	test.Contains(body.Content, "pygot")
	test.Contains(body.Content, "3.7/linux")
	test.Contains(body.Content, "success")
	test.NotContains(body.Content, "failure")
}

func TestNotifier_Notify_FailedJobReportsFailure(t *testing.T) {
	test := assert.New(t)

	var body payload

	server := httptest.NewServer(http.HandlerFunc(
		func(response http.ResponseWriter, request *http.Request) {
			json.NewDecoder(request.Body).Decode(&body)
			response.WriteHeader(http.StatusNoContent)
		},
	))
	defer server.Close()

	notifier := NewNotifier(server.URL)

	err := notifier.Notify(Event{
		Pipeline: "pygot",
		Job:      "3.8/windows",
		Status:   status.FAILED,
	})
	test.NoError(err)
	test.Contains(body.Content, "failure")
}

func TestNotifier_Notify_RemoteFailureIsAnError(t *testing.T) {
	test := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(
		func(response http.ResponseWriter, request *http.Request) {
			response.WriteHeader(http.StatusBadRequest)
		},
	))
	defer server.Close()

	notifier := NewNotifier(server.URL)

	err := notifier.Notify(Event{Status: status.FAILED})
	test.Error(err)
}

func TestNotifier_Notify_MissingWebhookIsAnError(t *testing.T) {
	test := assert.New(t)

	notifier := NewNotifier("")
	test.Error(notifier.Notify(Event{Status: status.SUCCESS}))
}
