package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachine_Advance_WalksAllGatesOnSuccess(t *testing.T) {
	test := assert.New(t)

	machine := NewMachine()

	phases := []Phase{
		PHASE_INSTALLING,
		PHASE_TESTING,
		PHASE_STYLE_CHECKING,
		PHASE_DOC_CHECKING,
		PHASE_LINTING,
		PHASE_SUCCESS,
		PHASE_REPORTING,
		PHASE_NOTIFIED,
		PHASE_TERMINAL,
	}

	for _, phase := range phases {
		test.NoError(machine.Advance(phase))
	}

	test.Equal(PHASE_TERMINAL, machine.Current())
	test.Equal(SUCCESS, machine.Outcome())
}

func TestMachine_Advance_FailureSkipsRemainingGates(t *testing.T) {
	test := assert.New(t)

	machine := NewMachine()

	test.NoError(machine.Advance(PHASE_INSTALLING))
	test.NoError(machine.Advance(PHASE_TESTING))
	test.NoError(machine.Advance(PHASE_FAILURE))

	// gate phases are unreachable once the job has failed
	test.Error(machine.Advance(PHASE_STYLE_CHECKING))
	test.Error(machine.Advance(PHASE_LINTING))

	test.NoError(machine.Advance(PHASE_NOTIFIED))
	test.NoError(machine.Advance(PHASE_TERMINAL))

	test.Equal(FAILED, machine.Outcome())
}

func TestMachine_Advance_FailedJobStillReachesNotified(t *testing.T) {
	test := assert.New(t)

	machine := NewMachine()

	test.NoError(machine.Advance(PHASE_FAILURE))
	test.NoError(machine.Advance(PHASE_NOTIFIED))
	test.NoError(machine.Advance(PHASE_TERMINAL))
}

func TestMachine_Advance_RejectsSkippingGates(t *testing.T) {
	test := assert.New(t)

	machine := NewMachine()

	test.Error(machine.Advance(PHASE_LINTING))
	test.Error(machine.Advance(PHASE_SUCCESS))
	test.Error(machine.Advance(PHASE_TERMINAL))
}

func TestIsGatePhase(t *testing.T) {
	test := assert.New(t)

	test.True(IsGatePhase(PHASE_INSTALLING))
	test.True(IsGatePhase(PHASE_LINTING))
	test.False(IsGatePhase(PHASE_TRIGGERED))
	test.False(IsGatePhase(PHASE_REPORTING))
	test.False(IsGatePhase(PHASE_TERMINAL))
}
