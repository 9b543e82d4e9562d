// +build windows

package platform

const CURRENT = WINDOWS
