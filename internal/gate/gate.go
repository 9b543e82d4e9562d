package gate

import (
	"fmt"

	"github.com/reconquest/gate-runner/internal/status"
)

// Kind is one of the quality gates a job walks through. The gates always
// run in the order returned by Order(), any gate failure skips the rest.
type Kind string

const (
	KindInstall  = Kind("install")
	KindTest     = Kind("test")
	KindStyle    = Kind("style")
	KindDocstyle = Kind("docstyle")
	KindLint     = Kind("lint")
)

// Order returns the canonical gate sequence.
func Order() []Kind {
	return []Kind{
		KindInstall,
		KindTest,
		KindStyle,
		KindDocstyle,
		KindLint,
	}
}

func Known(kind Kind) bool {
	for _, known := range Order() {
		if known == kind {
			return true
		}
	}

	return false
}

func (kind Kind) Phase() status.Phase {
	switch kind {
	case KindInstall:
		return status.PHASE_INSTALLING
	case KindTest:
		return status.PHASE_TESTING
	case KindStyle:
		return status.PHASE_STYLE_CHECKING
	case KindDocstyle:
		return status.PHASE_DOC_CHECKING
	case KindLint:
		return status.PHASE_LINTING
	}

	panic("BUG: no phase for gate kind: " + string(kind))
}

// FailureLabel is the error taxonomy entry reported when the gate fails.
func (kind Kind) FailureLabel() string {
	switch kind {
	case KindInstall:
		return "install failure"
	case KindTest:
		return "test failure"
	case KindStyle:
		return "style violation"
	case KindDocstyle:
		return "doc-style violation"
	case KindLint:
		return "lint violation"
	}

	return fmt.Sprintf("unknown gate failure: %s", string(kind))
}

// DefaultCommands returns the commands a gate runs when the pipeline file
// does not override them. The roots are taken from the job environment so
// that the same defaults serve any source layout.
func DefaultCommands(kind Kind) []string {
	switch kind {
	case KindInstall:
		return []string{
			`python -m pip install -r requirements.txt`,
		}
	case KindTest:
		return []string{
			`python -m pytest --cov --cov-report=xml ${CI_TESTS_ROOT}`,
		}
	case KindStyle:
		return []string{
			`python -m pycodestyle ${CI_SOURCE_ROOT} ${CI_TESTS_ROOT}`,
		}
	case KindDocstyle:
		return []string{
			`python -m pydocstyle ${CI_SOURCE_ROOT} ${CI_TESTS_ROOT}`,
		}
	case KindLint:
		return []string{
			`python -m pylint ${CI_SOURCE_ROOT} ${CI_TESTS_ROOT}`,
		}
	}

	return nil
}

// RcfileLintCommands is the lint default for gates that pin an rcfile;
// CI_LINT_RCFILE is only present in the job environment in that case, so
// the plain default must not reference it.
func RcfileLintCommands() []string {
	return []string{
		`python -m pylint --rcfile=${CI_LINT_RCFILE} ` +
			`${CI_SOURCE_ROOT} ${CI_TESTS_ROOT}`,
	}
}
