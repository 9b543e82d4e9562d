package status

import (
	"fmt"
)

// Phase is a step of the per-job lifecycle. A job walks the gate phases in
// order, jumps to PHASE_FAILURE as soon as any gate fails, and always
// passes through PHASE_NOTIFIED before reaching PHASE_TERMINAL.
type Phase string

const (
	PHASE_TRIGGERED      = Phase("TRIGGERED")
	PHASE_INSTALLING     = Phase("INSTALLING")
	PHASE_TESTING        = Phase("TESTING")
	PHASE_STYLE_CHECKING = Phase("STYLE_CHECKING")
	PHASE_DOC_CHECKING   = Phase("DOC_CHECKING")
	PHASE_LINTING        = Phase("LINTING")
	PHASE_SUCCESS        = Phase("SUCCESS")
	PHASE_FAILURE        = Phase("FAILURE")
	PHASE_REPORTING      = Phase("REPORTING")
	PHASE_NOTIFIED       = Phase("NOTIFIED")
	PHASE_TERMINAL       = Phase("TERMINAL")
)

var gatePhases = []Phase{
	PHASE_INSTALLING,
	PHASE_TESTING,
	PHASE_STYLE_CHECKING,
	PHASE_DOC_CHECKING,
	PHASE_LINTING,
}

var transitions = map[Phase][]Phase{
	PHASE_TRIGGERED:      {PHASE_INSTALLING, PHASE_FAILURE},
	PHASE_INSTALLING:     {PHASE_TESTING, PHASE_FAILURE},
	PHASE_TESTING:        {PHASE_STYLE_CHECKING, PHASE_FAILURE},
	PHASE_STYLE_CHECKING: {PHASE_DOC_CHECKING, PHASE_FAILURE},
	PHASE_DOC_CHECKING:   {PHASE_LINTING, PHASE_FAILURE},
	PHASE_LINTING:        {PHASE_SUCCESS, PHASE_FAILURE},
	PHASE_SUCCESS:        {PHASE_REPORTING},
	PHASE_FAILURE:        {PHASE_NOTIFIED},
	PHASE_REPORTING:      {PHASE_NOTIFIED},
	PHASE_NOTIFIED:       {PHASE_TERMINAL},
	PHASE_TERMINAL:       {},
}

func IsGatePhase(phase Phase) bool {
	for _, gate := range gatePhases {
		if gate == phase {
			return true
		}
	}

	return false
}

type Machine struct {
	current Phase
	history []Phase
}

func NewMachine() *Machine {
	return &Machine{
		current: PHASE_TRIGGERED,
		history: []Phase{PHASE_TRIGGERED},
	}
}

func (machine *Machine) Current() Phase {
	return machine.current
}

func (machine *Machine) History() []Phase {
	history := make([]Phase, len(machine.history))
	copy(history, machine.history)
	return history
}

func (machine *Machine) Advance(next Phase) error {
	for _, allowed := range transitions[machine.current] {
		if allowed == next {
			machine.current = next
			machine.history = append(machine.history, next)
			return nil
		}
	}

	return fmt.Errorf(
		"illegal phase transition: %s -> %s",
		machine.current, next,
	)
}

// Outcome returns the job status once the machine has passed the gate
// phases: SUCCESS if the machine went through PHASE_SUCCESS, FAILED if it
// went through PHASE_FAILURE, UNKNOWN otherwise.
func (machine *Machine) Outcome() Status {
	for _, phase := range machine.history {
		switch phase {
		case PHASE_SUCCESS:
			return SUCCESS
		case PHASE_FAILURE:
			return FAILED
		}
	}

	return UNKNOWN
}
