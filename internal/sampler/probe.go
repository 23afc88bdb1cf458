package sampler

import (
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/fastbench/fbench/internal/domain"
)

const mb = 1024 * 1024

// SystemProbe reads live telemetry through gopsutil plus an optional
// nvidia-smi GPU query. I/O figures are per-second rates computed from
// counter deltas between consecutive ticks; the first tick reports zeros.
type SystemProbe struct {
	proc           *process.Process
	dataExtensions []string

	prevTime    time.Time
	prevProcIO  *process.IOCountersStat
	prevDiskRd  uint64
	prevDiskWr  uint64
	prevNetRecv uint64
	prevNetSent uint64
	haveSysPrev bool

	gpuUnavailable bool
}

// NewSystemProbe binds a probe to the monitored process id. The process not
// existing yet (or anymore) is tolerated: readings come back null until it
// is reachable.
func NewSystemProbe(pid int32, dataExtensions []string) *SystemProbe {
	p := &SystemProbe{dataExtensions: dataExtensions}
	if proc, err := process.NewProcess(pid); err == nil {
		p.proc = proc
	}
	return p
}

func (p *SystemProbe) elapsedSeconds(now time.Time) float64 {
	if p.prevTime.IsZero() {
		return 0
	}
	return now.Sub(p.prevTime).Seconds()
}

// Proc gathers process-level stats. ok=false when the monitored process is
// unreachable (it may simply have exited, which is still a valid run state).
func (p *SystemProbe) Proc() (*domain.ProcStats, bool) {
	if p.proc == nil {
		return nil, false
	}
	now := time.Now()
	cpu, err := p.proc.CPUPercent()
	if err != nil {
		return nil, false
	}
	mem, err := p.proc.MemoryInfo()
	if err != nil {
		return nil, false
	}
	stats := &domain.ProcStats{
		CPUPct: cpu,
		RSSMB:  float64(mem.RSS) / mb,
		VMSMB:  float64(mem.VMS) / mb,
	}
	if io, err := p.proc.IOCounters(); err == nil {
		if elapsed := p.elapsedSeconds(now); elapsed > 0 && p.prevProcIO != nil {
			stats.ReadBytesS = float64(io.ReadBytes-p.prevProcIO.ReadBytes) / elapsed
			stats.WriteBytesS = float64(io.WriteBytes-p.prevProcIO.WriteBytes) / elapsed
			stats.ReadCntS = float64(io.ReadCount-p.prevProcIO.ReadCount) / elapsed
			stats.WriteCntS = float64(io.WriteCount-p.prevProcIO.WriteCount) / elapsed
		}
		p.prevProcIO = io
	}
	return stats, true
}

// Sys gathers system-wide disk and network throughput rates.
func (p *SystemProbe) Sys() (*domain.SysStats, bool) {
	now := time.Now()
	stats := &domain.SysStats{}

	var diskRd, diskWr uint64
	if counters, err := disk.IOCounters(); err == nil {
		for _, c := range counters {
			diskRd += c.ReadBytes
			diskWr += c.WriteBytes
		}
	}
	var netRecv, netSent uint64
	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		netRecv = counters[0].BytesRecv
		netSent = counters[0].BytesSent
	}

	if elapsed := p.elapsedSeconds(now); elapsed > 0 && p.haveSysPrev {
		stats.DiskReadMBS = float64(diskRd-p.prevDiskRd) / elapsed / mb
		stats.DiskWriteMBS = float64(diskWr-p.prevDiskWr) / elapsed / mb
		stats.NetRecvMBS = float64(netRecv-p.prevNetRecv) / elapsed / mb
		stats.NetSentMBS = float64(netSent-p.prevNetSent) / elapsed / mb
	}
	p.prevDiskRd, p.prevDiskWr = diskRd, diskWr
	p.prevNetRecv, p.prevNetSent = netRecv, netSent
	p.haveSysPrev = true
	p.prevTime = now
	return stats, true
}

// GPU queries nvidia-smi. A machine without a compatible device is not an
// error: the first failed query disables the probe for the rest of the run.
func (p *SystemProbe) GPU() (*domain.GPUStats, bool) {
	if p.gpuUnavailable {
		return nil, false
	}
	out, err := exec.Command("nvidia-smi",
		"--query-gpu=utilization.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		p.gpuUnavailable = true
		return nil, false
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		p.gpuUnavailable = true
		return nil, false
	}
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v
	}
	return &domain.GPUStats{
		UtilPct:    parse(fields[0]),
		MemUsedMB:  parse(fields[1]),
		MemTotalMB: parse(fields[2]),
	}, true
}

// OpenDataFiles lists large-data-file paths currently open by the monitored
// process, filtered by the configured extensions. Platforms or processes
// that cannot be inspected yield an empty set, not an error.
func (p *SystemProbe) OpenDataFiles() []string {
	if p.proc == nil || len(p.dataExtensions) == 0 {
		return nil
	}
	open, err := p.proc.OpenFiles()
	if err != nil {
		return nil
	}
	var paths []string
	for _, f := range open {
		lower := strings.ToLower(f.Path)
		for _, ext := range p.dataExtensions {
			if strings.HasSuffix(lower, strings.ToLower(ext)) {
				paths = append(paths, f.Path)
				break
			}
		}
	}
	return paths
}
