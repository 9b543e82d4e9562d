// +build !windows

package shell

const (
	DEFAULT_SHELL   = "sh"
	PREFERRED_SHELL = "bash"
)
