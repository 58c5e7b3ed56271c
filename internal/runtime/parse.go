package runtime

import (
	"strconv"
	"strings"
	"time"
)

func parseDockerTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ParsePercent strips a trailing "%" (and surrounding whitespace) and
// float-parses the remainder, returning 0 on any malformed input instead
// of erroring — mirrors the original's parse_percent, which never crashes
// the monitor loop over a malformed docker-stats field.
func ParsePercent(value string) float64 {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0.0
	}
	return f
}

// ParseMemoryMB parses a "12.34MiB / 512MiB"-style docker-stats mem string
// and returns the used amount in megabytes, checking unit suffixes in the
// same order as the original's parse_memory_mb: GiB, MiB, KiB, GB, MB, KB,
// B, bare float. Returns 0 on any parse failure.
func ParseMemoryMB(memStr string) float64 {
	parts := strings.SplitN(memStr, "/", 2)
	used := strings.TrimSpace(parts[0])

	switch {
	case strings.HasSuffix(used, "GiB"):
		return parseFloatPrefix(used, "GiB") * 1024
	case strings.HasSuffix(used, "MiB"):
		return parseFloatPrefix(used, "MiB")
	case strings.HasSuffix(used, "KiB"):
		return parseFloatPrefix(used, "KiB") / 1024
	case strings.HasSuffix(used, "GB"):
		return parseFloatPrefix(used, "GB") * 1000
	case strings.HasSuffix(used, "MB"):
		return parseFloatPrefix(used, "MB")
	case strings.HasSuffix(used, "KB"):
		return parseFloatPrefix(used, "KB") / 1000
	case strings.HasSuffix(used, "B"):
		return parseFloatPrefix(used, "B") / 1024 / 1024
	default:
		f, err := strconv.ParseFloat(used, 64)
		if err != nil {
			return 0.0
		}
		return f
	}
}

func parseFloatPrefix(s, suffix string) float64 {
	v := strings.TrimSuffix(s, suffix)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0.0
	}
	return f
}

// calcCPUPercent guards against counter resets the same way the teacher's
// CalcCPUPercentDelta does: a reset looks like the new reading being
// smaller than the previous one, and in that case we report 0 rather than
// a nonsensical negative/huge percentage.
func calcCPUPercent(curContainer, prevContainer, curSystem, prevSystem uint64, onlineCPUs int) float64 {
	if curContainer < prevContainer || curSystem < prevSystem {
		return 0
	}
	containerDelta := float64(curContainer - prevContainer)
	systemDelta := float64(curSystem - prevSystem)
	if systemDelta <= 0 || containerDelta <= 0 {
		return 0
	}
	cpus := float64(onlineCPUs)
	if cpus <= 0 {
		cpus = 1
	}
	return (containerDelta / systemDelta) * cpus * 100.0
}
