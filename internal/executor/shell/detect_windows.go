package shell

const (
	DEFAULT_SHELL   = "cmd"
	PREFERRED_SHELL = "powershell"
)
