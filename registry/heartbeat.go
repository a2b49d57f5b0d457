package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// Heartbeat is the liveness record one worker publishes under
// "worker:<id>". Counters are cumulative since worker start.
type Heartbeat struct {
	WorkerID         string  `json:"worker_id"`
	Hostname         string  `json:"hostname"`
	PID              int     `json:"pid"`
	State            string  `json:"state"`
	PagesCrawled     int64   `json:"pages_crawled"`
	ContentExtracted int64   `json:"content_extracted"`
	Duplicates       int64   `json:"duplicates_filtered"`
	QualityFiltered  int64   `json:"quality_filtered"`
	Errors           int64   `json:"errors"`
	AvgFetchMs       float64 `json:"avg_fetch_ms"`
	AvgExtractMs     float64 `json:"avg_extract_ms"`
	MemoryAllocMB    float64 `json:"memory_alloc_mb"`
	Goroutines       int     `json:"goroutines"`
	SentAt           int64   `json:"sent_at"` // UnixMilli
}

// FillRuntime stamps hostname, pid and Go runtime stats onto the beat.
func (hb *Heartbeat) FillRuntime() {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	hb.Hostname = host
	hb.PID = os.Getpid()
	hb.MemoryAllocMB = float64(mem.Alloc) / 1024 / 1024
	hb.Goroutines = runtime.NumGoroutine()
}

// WriteHeartbeat publishes a beat under the worker key with the standard
// worker TTL. The beat's SentAt is stamped here.
func (r *Registry) WriteHeartbeat(ctx context.Context, hb Heartbeat) error {
	hb.SentAt = r.now().UnixMilli()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return r.Set(ctx, PrefixWorker+hb.WorkerID, string(data), WorkerTTL)
}

// HeartbeatLoop publishes beats from collect on a ticker until ctx is
// cancelled. It writes one beat immediately on start and deletes the worker
// key on the way out so a drained worker disappears at once instead of
// lingering until TTL.
func (r *Registry) HeartbeatLoop(ctx context.Context, interval time.Duration, collect func() Heartbeat, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	write := func() {
		hb := collect()
		hb.FillRuntime()
		if err := r.WriteHeartbeat(ctx, hb); err != nil {
			log.Warn("registry: heartbeat write", "worker_id", hb.WorkerID, "error", err)
		}
	}
	write()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hb := collect()
			cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.Delete(cleanup, PrefixWorker+hb.WorkerID); err != nil {
				log.Warn("registry: heartbeat cleanup", "worker_id", hb.WorkerID, "error", err)
			}
			return
		case <-ticker.C:
			write()
		}
	}
}
