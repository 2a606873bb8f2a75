package stress

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// Stats is re-exported so callers of Report need not import pool.
type Stats = pool.Stats

// Report summarizes a stress run.
type Report struct {
	Pool        string        `json:"pool"`
	Workers     int           `json:"workers"`
	Iterations  int           `json:"iterations"`
	PayloadSize int           `json:"payload_size"`
	Handoff     bool          `json:"handoff"`
	Codec       string        `json:"codec"`
	Duration    time.Duration `json:"duration_ns"`
	Lends       uint64        `json:"lends"`
	LendsPerSec float64       `json:"lends_per_sec"`
	HandedOff   uint64        `json:"handed_off"`
	Mismatches  uint64        `json:"mismatches"`
	LatencyP50  time.Duration `json:"latency_p50_ns"`
	LatencyP99  time.Duration `json:"latency_p99_ns"`
	Stats       Stats         `json:"stats"`
	Before      ResourceUsage `json:"resources_before"`
	After       ResourceUsage `json:"resources_after"`
	Canceled    bool          `json:"canceled"`
}

// JSON renders the report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
