package validator

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// ResourceUsage is the host-resource snapshot check 6 evaluates against.
type ResourceUsage struct {
	CPUPercent  float64
	MemPercent  float64
	FreeDiskGiB float64
}

// ResourceSource abstracts host telemetry so it can be faked in tests. No
// example repo in the pack wires a telemetry SDK for this, so the
// implementation reads /proc directly (Linux-only, standard library only) —
// this is the justified standard-library fallback documented in DESIGN.md.
type ResourceSource interface {
	Usage() (ResourceUsage, error)
}

type defaultResourceSource struct{}

func (defaultResourceSource) Usage() (ResourceUsage, error) {
	memPercent, err := readMemPercent()
	if err != nil {
		return ResourceUsage{}, err
	}
	diskGiB, err := readFreeDiskGiB("/")
	if err != nil {
		return ResourceUsage{}, err
	}
	cpuPercent, err := readLoadAsCPUPercent()
	if err != nil {
		return ResourceUsage{}, err
	}
	return ResourceUsage{CPUPercent: cpuPercent, MemPercent: memPercent, FreeDiskGiB: diskGiB}, nil
}

func readMemPercent() (float64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total, available float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMeminfoValue(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = parseMeminfoValue(line)
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("could not determine total memory")
	}
	used := total - available
	return used / total * 100, nil
}

func parseMeminfoValue(line string) float64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[1], 64)
	return v
}

func readFreeDiskGiB(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	bytesFree := stat.Bavail * uint64(stat.Bsize)
	return float64(bytesFree) / (1024 * 1024 * 1024), nil
}

func readLoadAsCPUPercent() (float64, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("unexpected /proc/loadavg format")
	}
	load1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	numCPU := float64(runtime.NumCPU())
	if numCPU <= 0 {
		numCPU = 1
	}
	percent := load1 / numCPU * 100
	if percent > 100 {
		percent = 100
	}
	return percent, nil
}
