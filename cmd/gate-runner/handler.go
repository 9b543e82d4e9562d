package main

import (
	"encoding/json"
	"net/http"

	"github.com/reconquest/pkg/log"
	"github.com/reconquest/pkg/web"
	"github.com/reconquest/gate-runner/internal/builtin"
	"github.com/reconquest/gate-runner/internal/tasks"
)

type WebHandler struct {
	web    *web.Web
	daemon *Daemon
}

func NewWebHandler(daemon *Daemon) *WebHandler {
	handler := &WebHandler{
		daemon: daemon,
	}

	web := web.New()

	web.Get("/", web.ServeFunc(handler.HandleStatus))

	handler.web = web

	return handler
}

func (handler *WebHandler) HandleStatus(context *web.Context) web.Status {
	payload, _ := json.Marshal(map[string]interface{}{
		"name":      handler.daemon.config.Name,
		"version":   builtin.Version,
		"pipelines": handler.daemon.scheduler.getPipelines(),
	})

	context.Write(payload)

	return context.OK()
}

// HandleTask is the trigger endpoint: a pipeline_run or pipeline_cancel
// task as the request body.
func (handler *WebHandler) HandleTask(
	response http.ResponseWriter,
	request *http.Request,
) {
	if request.Method != http.MethodPost {
		response.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var task tasks.Task

	err := json.NewDecoder(request.Body).Decode(&task)
	if err != nil {
		log.Errorf(err, "unable to decode a task request")
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	err = handler.daemon.scheduler.Push(task)
	if err != nil {
		log.Errorf(err, "unable to serve a task")
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	response.WriteHeader(http.StatusAccepted)
}

func (handler *WebHandler) ServeHTTP(
	response http.ResponseWriter,
	request *http.Request,
) {
	if request.URL.Path == "/tasks" {
		handler.HandleTask(response, request)
		return
	}

	handler.web.ServeHTTP(response, request)
}
