//go:build windows

package debug

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// processMemoryCounters matches PROCESS_MEMORY_COUNTERS from psapi.
type processMemoryCounters struct {
	cb                         uint32
	PageFaultCount             uint32
	PeakWorkingSetSize         uintptr
	WorkingSetSize             uintptr
	QuotaPeakPagedPoolUsage    uintptr
	QuotaPagedPoolUsage        uintptr
	QuotaPeakNonPagedPoolUsage uintptr
	QuotaNonPagedPoolUsage     uintptr
	PagefileUsage              uintptr
	PeakPagefileUsage          uintptr
}

const (
	grGDIObjects  = 0
	grUserObjects = 1
)

var (
	modPsapi                 = windows.NewLazySystemDLL("psapi.dll")
	modUser32                = windows.NewLazySystemDLL("user32.dll")
	procGetProcessMemoryInfo = modPsapi.NewProc("GetProcessMemoryInfo")
	procGetGuiResources      = modUser32.NewProc("GetGuiResources")
)

func osCounters() (gdi, user uint32, rss uint64) {
	proc := uintptr(windows.CurrentProcess())
	g, _, _ := procGetGuiResources.Call(proc, grGDIObjects)
	u, _, _ := procGetGuiResources.Call(proc, grUserObjects)
	pmc := processMemoryCounters{cb: uint32(unsafe.Sizeof(processMemoryCounters{}))}
	if r, _, _ := procGetProcessMemoryInfo.Call(proc, uintptr(unsafe.Pointer(&pmc)), uintptr(pmc.cb)); r != 0 {
		rss = uint64(pmc.WorkingSetSize)
	}
	return uint32(g), uint32(u), rss
}
