//go:build linux

package sysparam

import (
	"strconv"
	"strings"

	"github.com/lorenzosaino/go-sysctl"
)

// procSysRoot is replaced in tests
var procSysRoot = "/proc/sys/"

// sysctlPrefixes maps BSD-style top-level names onto /proc/sys directories
var sysctlPrefixes = map[string]string{
	"kern": "kernel",
	"vm":   "vm",
	"net":  "net",
	"fs":   "fs",
}

func readString(name string) (string, bool) {
	key, ok := procSysName(name)
	if !ok {
		return "", false
	}
	client, err := sysctl.NewClient(strings.TrimSuffix(procSysRoot, "/") + "/")
	if err != nil {
		return "", false
	}
	value, err := client.Get(key)
	if err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func readInt(name string) (int64, bool) {
	value, ok := readString(name)
	if !ok {
		return 0, false
	}
	// Multi-value entries such as vm.lowmem_reserve_ratio report the first field
	if fields := strings.Fields(value); len(fields) > 1 {
		value = fields[0]
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// procSysName rewrites a BSD-style name into the dotted /proc/sys form
func procSysName(name string) (string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", false
	}
	for _, part := range parts {
		if part == "" || strings.ContainsRune(part, '/') {
			return "", false
		}
	}
	if mapped, ok := sysctlPrefixes[parts[0]]; ok {
		parts[0] = mapped
	}
	return strings.Join(parts, "."), true
}
