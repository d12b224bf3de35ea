//go:build !windows

package debug

import (
	"bytes"
	"os"
	"strconv"
)

// osCounters reads the resident set from /proc where available. There are no
// GDI or USER objects outside Windows.
func osCounters() (gdi, user uint32, rss uint64) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, 0, 0
	}
	fields := bytes.Fields(data)
	if len(fields) < 2 {
		return 0, 0, 0
	}
	pages, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0, 0, 0
	}
	return 0, 0, pages * uint64(os.Getpagesize())
}
