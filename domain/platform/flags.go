package platform

import "github.com/soocke/wincap/domain/capture"

// PrintWindow flags.
const (
	pwClientOnly        = 0x00000001
	pwRenderFullContent = 0x00000002
)

// printWindowFlags asks DWM for the composed content and, for client
// requests, restricts rendering to the client area.
func printWindowFlags(area capture.Area) uintptr {
	if area == capture.AreaClient {
		return pwRenderFullContent | pwClientOnly
	}
	return pwRenderFullContent
}

// legacyPrintWindowFlags leaves out PW_RENDERFULLCONTENT so the window paints
// itself through WM_PRINT.
func legacyPrintWindowFlags(area capture.Area) uintptr {
	if area == capture.AreaClient {
		return pwClientOnly
	}
	return 0
}
