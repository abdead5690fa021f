package scheduler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// defaultResourceSampler reads real system disk/memory availability via
// stdlib-only mechanisms (syscall.Statfs, /proc/meminfo). No third-party
// library in the example pack addresses disk or memory sampling — the
// docbuilder's own internal/daemon/status.go punts on disk entirely
// ("N/A... requires platform-specific syscalls") and reports only Go's
// own heap via runtime.MemStats, not system-wide free memory. DESIGN.md
// documents this as the one ambient concern left on the standard library.
type defaultResourceSampler struct{}

func (defaultResourceSampler) FreeDiskGB(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bytesFree := stat.Bavail * uint64(stat.Bsize)
	return float64(bytesFree) / (1024 * 1024 * 1024), nil
}

func (defaultResourceSampler) FreeMemGB() (float64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("unexpected /proc/meminfo line: %q", line)
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, err
		}
		return float64(kb) / (1024 * 1024), nil
	}
	return 0, fmt.Errorf("MemAvailable not found in /proc/meminfo")
}
