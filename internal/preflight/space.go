package preflight

import (
	"math"

	"github.com/shirou/gopsutil/v3/disk"
)

// FreeBytes reports the available bytes on the filesystem containing path.
// It returns -1 when the filesystem cannot be queried; callers treat that
// as unknown rather than insufficient.
func FreeBytes(path string) int64 {
	usage, err := disk.Usage(path)
	if err != nil || usage == nil {
		return -1
	}
	if usage.Free > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(usage.Free)
}

// RequiredBytes returns the scratch space needed to carve a unit of the given
// size. The engine writes recovered files alongside its own bookkeeping, so
// the estimate pads the unit size by twenty percent.
func RequiredBytes(unitSize int64) int64 {
	if unitSize <= 0 {
		return 0
	}
	return unitSize + unitSize/5
}

// SpaceCheck evaluates a free-byte figure against the scratch requirement for
// a unit of the given size, returning the verdict and the requirement. A
// negative free figure means unknown, which counts as sufficient.
func SpaceCheck(free, unitSize int64) (bool, int64) {
	required := RequiredBytes(unitSize)
	if free < 0 {
		return true, required
	}
	return free >= required, required
}
