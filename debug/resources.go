// Package debug samples process resources so leaks across repeated captures
// show up in logs. Everything here is best effort and only used when
// config.Debug is true.
package debug

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
)

// Resources is a point-in-time view of process resource usage. GDI and USER
// object counts are zero where the OS has no such notion.
type Resources struct {
	Goroutines  uint64
	HeapAlloc   uint64
	HeapInuse   uint64
	RSS         uint64
	GDIObjects  uint32
	UserObjects uint32
}

// Snapshot reads the current counters.
func Snapshot() Resources {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r := Resources{
		Goroutines: samples[0].Value.Uint64(),
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
	}
	r.GDIObjects, r.UserObjects, r.RSS = osCounters()
	return r
}

// Attrs renders r as slog attributes.
func (r Resources) Attrs() []any {
	return []any{
		slog.Uint64("goroutines", r.Goroutines),
		slog.String("heap_alloc", humanize.IBytes(r.HeapAlloc)),
		slog.String("heap_inuse", humanize.IBytes(r.HeapInuse)),
		slog.String("rss", humanize.IBytes(r.RSS)),
		slog.Uint64("gdi_objects", uint64(r.GDIObjects)),
		slog.Uint64("user_objects", uint64(r.UserObjects)),
	}
}

// Grew lists OS handle counters that are higher in after than in before.
// GDI and USER objects are reclaimed eagerly, so any growth after a batch of
// captures points at a handle that was not released. Heap and RSS fluctuate
// with the GC and are not compared.
func Grew(before, after Resources) []string {
	var out []string
	if after.GDIObjects > before.GDIObjects {
		out = append(out, fmt.Sprintf("gdi objects %d -> %d", before.GDIObjects, after.GDIObjects))
	}
	if after.UserObjects > before.UserObjects {
		out = append(out, fmt.Sprintf("user objects %d -> %d", before.UserObjects, after.UserObjects))
	}
	return out
}

// StartResourceLogger launches a goroutine that logs a snapshot every
// interval until stop is closed.
func StartResourceLogger(interval time.Duration, logger *slog.Logger, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				logger.Info("resources", Snapshot().Attrs()...)
			}
		}
	}()
}
