package domain

import "time"

// SampleColumns is the fixed telemetry CSV column set, written as the header
// row. Downstream analysis depends on the exact names and order.
var SampleColumns = []string{
	"ts", "pid", "cpu_pct", "rss_mb", "vms_mb",
	"read_bytes_s", "write_bytes_s", "read_cnt_s", "write_cnt_s",
	"sys_disk_read_mb_s", "sys_disk_write_mb_s",
	"sys_net_recv_mb_s", "sys_net_sent_mb_s",
	"gpu_util_pct", "gpu_mem_used_mb", "gpu_mem_total_mb",
	"remote_req_latency_ms", "remote_req_bytes", "remote_cache_hit",
	"open_data_paths",
}

// GPUStats holds optional GPU telemetry. Absent when no compatible device.
type GPUStats struct {
	UtilPct    float64
	MemUsedMB  float64
	MemTotalMB float64
}

// ProcStats holds per-process telemetry for one tick. I/O values are
// per-second rates derived from counter deltas, not cumulative totals.
type ProcStats struct {
	CPUPct      float64
	RSSMB       float64
	VMSMB       float64
	ReadBytesS  float64
	WriteBytesS float64
	ReadCntS    float64
	WriteCntS   float64
}

// SysStats holds system-wide throughput rates for one tick.
type SysStats struct {
	DiskReadMBS  float64
	DiskWriteMBS float64
	NetRecvMBS   float64
	NetSentMBS   float64
}

// SampleRow is one telemetry tick. A missed tick is represented by a row
// with Missed set (all numeric fields written null) rather than a gap, so
// row count always equals elapsed intervals. A row for an unreachable
// monitored process keeps system fields but nulls the process ones.
type SampleRow struct {
	Timestamp time.Time
	PID       int32
	Missed    bool
	Proc      *ProcStats
	Sys       *SysStats
	GPU       *GPUStats

	// Optional remote-I/O figures from the storage backend's own logs.
	RemoteLatencyMS float64
	RemoteReqBytes  float64
	RemoteCacheHit  int
	RemoteValid     bool

	OpenDataPaths []string
}
