package report

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"sync"
	"time"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/gate-runner/internal/gate"
	"github.com/reconquest/gate-runner/internal/status"
)

const Filename = "report.json"

// Report is the machine-readable outcome of one pipeline run, written
// into the run directory when the pipeline reaches a final status.
type Report struct {
	mutex sync.Mutex

	Pipeline   string        `json:"pipeline"`
	Status     status.Status `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Jobs       []*Job        `json:"jobs"`
}

type Job struct {
	mutex sync.Mutex

	Name       string         `json:"name"`
	Runtime    string         `json:"runtime,omitempty"`
	System     string         `json:"system,omitempty"`
	Status     status.Status  `json:"status"`
	Phases     []status.Phase `json:"phases"`
	Gates      []*Gate        `json:"gates"`
	Coverage   *float64       `json:"coverage,omitempty"`
	Log        string         `json:"log,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

type Gate struct {
	Kind     gate.Kind     `json:"kind"`
	Status   status.Status `json:"status"`
	Duration time.Duration `json:"duration"`
}

func New(pipeline string, createdAt time.Time) *Report {
	return &Report{
		Pipeline:  pipeline,
		Status:    status.RUNNING,
		CreatedAt: createdAt,
		Jobs:      []*Job{},
	}
}

func (report *Report) AddJob(job *Job) {
	report.mutex.Lock()
	defer report.mutex.Unlock()

	report.Jobs = append(report.Jobs, job)
}

func (report *Report) Finish(result status.Status, finishedAt time.Time) {
	report.mutex.Lock()
	defer report.mutex.Unlock()

	report.Status = result
	report.FinishedAt = &finishedAt
}

// Write marshals the report into dir/report.json. The report file is the
// aggregate outcome surface: a badge renderer or an operator reads the
// status field from it.
func (report *Report) Write(dir string) error {
	report.mutex.Lock()
	defer report.mutex.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return karma.Format(
			err,
			"unable to marshal run report",
		)
	}

	path := filepath.Join(dir, Filename)

	err = ioutil.WriteFile(path, append(data, '\n'), 0o644)
	if err != nil {
		return karma.Format(
			err,
			"unable to write run report: %s", path,
		)
	}

	return nil
}

func (job *Job) AppendLog(chunk []byte) {
	job.mutex.Lock()
	defer job.mutex.Unlock()

	job.Log += string(chunk)
}

func (job *Job) SetGate(kind gate.Kind, result status.Status, duration time.Duration) {
	job.mutex.Lock()
	defer job.mutex.Unlock()

	for _, gate := range job.Gates {
		if gate.Kind == kind {
			gate.Status = result
			gate.Duration = duration
			return
		}
	}

	job.Gates = append(job.Gates, &Gate{
		Kind:     kind,
		Status:   result,
		Duration: duration,
	})
}

func (job *Job) SetPhases(phases []status.Phase) {
	job.mutex.Lock()
	defer job.mutex.Unlock()

	job.Phases = phases
}

func (job *Job) SetCoverage(percent float64) {
	job.mutex.Lock()
	defer job.mutex.Unlock()

	job.Coverage = &percent
}

func (job *Job) Finish(result status.Status, finishedAt time.Time) {
	job.mutex.Lock()
	defer job.mutex.Unlock()

	job.Status = result
	job.FinishedAt = &finishedAt
}
