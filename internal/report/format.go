package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/utkarsh5026/nbench/internal/harness"
)

// FormatNumber formats an integer with comma separators
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	var result strings.Builder
	if n < 0 {
		_ = result.WriteByte('-')
		s = s[1:]
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			_ = result.WriteByte(',')
		}
		_, _ = result.WriteRune(c)
	}
	return result.String()
}

// FormatRate formats an iterations-per-second figure. Rates of 10000 and
// above are rounded and grouped; smaller ones keep enough decimals to tell
// slow tests apart.
func FormatRate(r float64) string {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0) || r < 0:
		return "-"
	case r >= 10000:
		return FormatNumber(int64(math.Round(r)))
	case r >= 100:
		return strconv.FormatFloat(r, 'f', 2, 64)
	default:
		return strconv.FormatFloat(r, 'f', 4, 64)
	}
}

// FormatIndex formats a score relative to a reference machine.
func FormatIndex(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatSeconds formats a span of seconds in the most appropriate unit.
func FormatSeconds(secs float64) string {
	return FormatDuration(time.Duration(secs * float64(time.Second)))
}

// FormatDuration formats a duration in the most appropriate unit
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}

	ns := d.Nanoseconds()

	if ns < 1000 {
		return fmt.Sprintf("%dns", ns)
	}

	if ns < 1_000_000 {
		us := float64(ns) / 1000.0
		if us == float64(int(us)) {
			return fmt.Sprintf("%dµs", int(us))
		}
		return fmt.Sprintf("%.1fµs", us)
	}

	if ns < 1_000_000_000 {
		ms := float64(ns) / 1_000_000.0
		if ms == float64(int(ms)) {
			return fmt.Sprintf("%dms", int(ms))
		}
		return fmt.Sprintf("%.2fms", ms)
	}

	s := float64(ns) / 1_000_000_000.0
	return fmt.Sprintf("%.2fs", s)
}

// FormatBytes formats a cache or memory size using binary units.
func FormatBytes(n int) string {
	switch {
	case n <= 0:
		return "-"
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

var sizeParams = []harness.SizeParam{
	harness.ParamNumArrays,
	harness.ParamArraySize,
	harness.ParamLoops,
	harness.ParamBitOpArraySize,
	harness.ParamBitFieldArraySize,
}

// FormatSizes lists the non-zero size parameters as name=value pairs.
func FormatSizes(s harness.Sizes) string {
	parts := make([]string, 0, len(sizeParams))
	for _, p := range sizeParams {
		if v := s.Get(p); v != 0 {
			parts = append(parts, p.String()+"="+strconv.Itoa(v))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
