//go:build darwin

package sysparam

import (
	"golang.org/x/sys/unix"
)

func readString(name string) (string, bool) {
	value, err := unix.Sysctl(name)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func readInt(name string) (int64, bool) {
	if value, err := unix.SysctlUint64(name); err == nil {
		return int64(value), true
	}
	if value, err := unix.SysctlUint32(name); err == nil {
		return int64(value), true
	}
	return 0, false
}
