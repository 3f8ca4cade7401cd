package util

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/shirou/gopsutil/v4/host"
)

// SystemInfo returns the operating system details
type SystemInfo struct {
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	Architecture    string `json:"architecture"`
	GoVersion       string `json:"go_version"`
	Container       bool   `json:"container"`
}

// GetSystemInfo returns info about the system. Host details are best effort.
func GetSystemInfo() *SystemInfo {
	s := &SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    strings.TrimPrefix(runtime.Version(), "go"),
		Container:    IsRunningInsideDocker(),
	}
	if h, err := host.Info(); err == nil {
		s.Platform = h.Platform
		s.PlatformVersion = h.PlatformVersion
		if h.KernelArch != "" {
			s.Architecture = h.KernelArch
		}
	}
	return s
}

// UserAgent returns the User-Agent header value for the version.
func (s *SystemInfo) UserAgent(version string) string {
	platform := s.OS
	if s.Platform != "" {
		platform = s.Platform
		if s.PlatformVersion != "" {
			platform += " " + s.PlatformVersion
		}
	}
	return fmt.Sprintf("tablecraft/%s (%s; %s) go/%s", version, platform, s.Architecture, s.GoVersion)
}

// GetMachineId returns a unique machine ID scoped to this application
func GetMachineId() (string, error) {
	return machineid.ProtectedID("tablecraft")
}
