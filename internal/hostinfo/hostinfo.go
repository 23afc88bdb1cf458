// Package hostinfo identifies the machine a benchmark run executes on.
package hostinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/fastbench/fbench/internal/domain"
)

// Collect gathers host identity for the run manifest. Fields that cannot be
// read stay zero-valued; host identity is descriptive, never a reason to
// fail a run.
func Collect() domain.Host {
	h := domain.Host{
		OS:        runtime.GOOS,
		GoVersion: runtime.Version(),
	}
	if info, err := host.Info(); err == nil {
		h.Hostname = info.Hostname
		h.Platform = info.Platform + " " + info.PlatformVersion
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		h.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil {
		h.LogicalCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.TotalRAMMB = vm.Total / (1024 * 1024)
	}
	return h
}
