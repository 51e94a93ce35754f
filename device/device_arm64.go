//go:build arm64

package device

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

func init() {
	// cpu.ARM64 feature detection is unreliable on darwin; Apple Silicon
	// always has ASIMD.
	hasASIMD = cpu.ARM64.HasASIMD || runtime.GOOS == "darwin"
}
