package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fastbench/fbench/internal/domain"
)

// MarkerWriter appends markers to a CSV artifact with columns
// ts_utc,event,comment.
type MarkerWriter struct {
	f *os.File
	w *csv.Writer
}

// NewMarkerWriter creates the markers file and writes the header.
func NewMarkerWriter(path string) (*MarkerWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create markers file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"ts_utc", "event", "comment"}); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &MarkerWriter{f: f, w: w}, nil
}

// Append writes one marker and flushes it to disk.
func (m *MarkerWriter) Append(marker domain.Marker) error {
	if err := m.w.Write([]string{domain.FormatUTC(marker.Timestamp), marker.Event, marker.Comment}); err != nil {
		return err
	}
	m.w.Flush()
	return m.w.Error()
}

// AppendAll writes a merged marker sequence.
func (m *MarkerWriter) AppendAll(markers []domain.Marker) error {
	for _, marker := range markers {
		if err := m.Append(marker); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the artifact.
func (m *MarkerWriter) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

// SampleWriter appends telemetry rows to a CSV artifact, one row per tick,
// flushed per row so a sampler crash loses at most the in-flight tick.
type SampleWriter struct {
	f *os.File
	w *csv.Writer
}

// NewSampleWriter creates the telemetry file and writes the column header.
func NewSampleWriter(path string) (*SampleWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(domain.SampleColumns); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &SampleWriter{f: f, w: w}, nil
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// Append renders and flushes one row. Null fields (missed tick, unreachable
// process, absent GPU) are written as empty strings, never as zeros, so
// gaps stay distinguishable from idle readings.
func (s *SampleWriter) Append(row domain.SampleRow) error {
	rec := make([]string, 0, len(domain.SampleColumns))
	rec = append(rec, domain.FormatUTC(row.Timestamp), strconv.Itoa(int(row.PID)))

	if row.Missed || row.Proc == nil {
		rec = append(rec, "", "", "", "", "", "", "")
	} else {
		p := row.Proc
		rec = append(rec, f2(p.CPUPct), f2(p.RSSMB), f2(p.VMSMB),
			f2(p.ReadBytesS), f2(p.WriteBytesS), f2(p.ReadCntS), f2(p.WriteCntS))
	}

	if row.Missed || row.Sys == nil {
		rec = append(rec, "", "", "", "")
	} else {
		rec = append(rec, f2(row.Sys.DiskReadMBS), f2(row.Sys.DiskWriteMBS),
			f2(row.Sys.NetRecvMBS), f2(row.Sys.NetSentMBS))
	}

	if row.Missed || row.GPU == nil {
		rec = append(rec, "", "", "")
	} else {
		rec = append(rec, f2(row.GPU.UtilPct), f2(row.GPU.MemUsedMB), f2(row.GPU.MemTotalMB))
	}

	if row.Missed || !row.RemoteValid {
		rec = append(rec, "", "", "")
	} else {
		rec = append(rec, f2(row.RemoteLatencyMS), f2(row.RemoteReqBytes), strconv.Itoa(row.RemoteCacheHit))
	}

	rec = append(rec, strings.Join(row.OpenDataPaths, ";"))

	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the artifact.
func (s *SampleWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
