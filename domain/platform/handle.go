package platform

import (
	"fmt"

	"github.com/soocke/wincap/domain/window"
)

// maxHandle bounds top-level window ids: HWNDs and X11 XIDs both fit in 32 bits.
const maxHandle = 0xFFFFFFFF

func validHandle(h window.Handle) bool { return h != 0 && uint64(h) <= maxHandle }

func checkHandle(h window.Handle) error {
	if !validHandle(h) {
		return fmt.Errorf("%s: %w", h, window.ErrInvalidHandle)
	}
	return nil
}
