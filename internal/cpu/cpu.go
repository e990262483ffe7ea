// Package cpu binds benchmark workers to OS threads and cores, and describes
// the processor the suite runs on.
package cpu

import (
	"runtime"
	"slices"

	"github.com/klauspost/cpuid/v2"
)

// LockThread locks the calling goroutine to its OS thread without pinning
// it to a core. Thread CPU time is only meaningful while the lock is held.
// Returns a cleanup function that should be deferred.
func LockThread() func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	return runtime.NumCPU()
}

// Description identifies the host processor.
type Description struct {
	Brand          string   `json:"brand"`
	Vendor         string   `json:"vendor"`
	Family         int      `json:"family"`
	Model          int      `json:"model"`
	Stepping       int      `json:"stepping"`
	PhysicalCores  int      `json:"physical_cores"`
	LogicalCores   int      `json:"logical_cores"`
	ThreadsPerCore int      `json:"threads_per_core"`
	FrequencyHz    int64    `json:"frequency_hz,omitempty"`
	CacheLine      int      `json:"cache_line"`
	L1Data         int      `json:"l1d_bytes"`
	L1Instruction  int      `json:"l1i_bytes"`
	L2             int      `json:"l2_bytes"`
	L3             int      `json:"l3_bytes"`
	Features       []string `json:"features"`
	GOARCH         string   `json:"goarch"`
	GOOS           string   `json:"goos"`
}

// Info describes the processor as reported by CPUID. On architectures where
// CPUID is unavailable most fields are zero and Brand falls back to GOARCH.
func Info() Description {
	c := cpuid.CPU

	d := Description{
		Brand:          c.BrandName,
		Vendor:         c.VendorString,
		Family:         c.Family,
		Model:          c.Model,
		Stepping:       c.Stepping,
		PhysicalCores:  c.PhysicalCores,
		LogicalCores:   c.LogicalCores,
		ThreadsPerCore: c.ThreadsPerCore,
		FrequencyHz:    c.Hz,
		CacheLine:      c.CacheLine,
		L1Data:         c.Cache.L1D,
		L1Instruction:  c.Cache.L1I,
		L2:             c.Cache.L2,
		L3:             c.Cache.L3,
		Features:       c.FeatureSet(),
		GOARCH:         runtime.GOARCH,
		GOOS:           runtime.GOOS,
	}
	slices.Sort(d.Features)

	if d.Brand == "" {
		d.Brand = runtime.GOARCH
	}
	if d.LogicalCores <= 0 {
		d.LogicalCores = runtime.NumCPU()
	}
	return d
}

// Supports reports whether the processor advertises every named feature,
// using cpuid feature names such as "AVX2" or "SSE4.2".
func (d Description) Supports(features ...string) bool {
	for _, f := range features {
		if !slices.Contains(d.Features, f) {
			return false
		}
	}
	return true
}
