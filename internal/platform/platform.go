package platform

type Platform string

const (
	POSIX   = Platform("posix")
	WINDOWS = Platform("windows")
)
