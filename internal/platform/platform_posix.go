// +build !windows

package platform

const CURRENT = POSIX
