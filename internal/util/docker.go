package util

import (
	"os"
	"strings"
)

// IsRunningInsideDocker returns true if the process is running inside a docker container.
func IsRunningInsideDocker() bool {
	if Exists("/.dockerenv") {
		return true
	}
	if buf, err := os.ReadFile("/proc/1/cgroup"); err == nil && len(buf) > 0 {
		contents := strings.TrimSpace(string(buf))
		return strings.Contains(contents, "docker") || strings.Contains(contents, "lxc") || strings.Contains(contents, "kubepods")
	}
	return false
}
