package report

import (
	"math"
	"testing"

	"github.com/utkarsh5026/nbench/internal/harness"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want string
	}{
		{"zero", 0, "0"},
		{"hundreds", 999, "999"},
		{"thousand", 1000, "1,000"},
		{"millions", 1234567, "1,234,567"},
		{"negative", -1234, "-1,234"},
		{"negative small", -100, "-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNumber(tt.in); got != tt.want {
				t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"large", 5829704.4, "5,829,704"},
		{"rounds", 12345.5, "12,346"},
		{"hundreds", 879.278, "879.28"},
		{"small", 38.993, "38.9930"},
		{"fraction", .2628, "0.2628"},
		{"nan", math.NaN(), "-"},
		{"inf", math.Inf(1), "-"},
		{"negative", -1, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRate(tt.in); got != tt.want {
				t.Errorf("FormatRate(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatIndex(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.000"},
		{2.5, "2.500"},
		{0, "-"},
		{math.NaN(), "-"},
	}

	for _, tt := range tests {
		if got := FormatIndex(tt.in); got != tt.want {
			t.Errorf("FormatIndex(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "500ms"},
		{2, "2.00s"},
		{0.0000015, "1.5µs"},
	}

	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "-"},
		{1000, "1000 B"},
		{1536, "1536 B"},
		{32768, "32 KiB"},
		{1 << 20, "1 MiB"},
		{12 << 20, "12 MiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSizes(t *testing.T) {
	tests := []struct {
		name string
		in   harness.Sizes
		want string
	}{
		{"empty", harness.Sizes{}, "-"},
		{"sort", harness.Sizes{NumArrays: 3, ArraySize: 8111}, "numarrays=3 arraysize=8111"},
		{"bitfield", harness.Sizes{BitOpArraySize: 48, BitFieldArraySize: 32768}, "bitoparraysize=48 bitfieldarraysize=32768"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSizes(tt.in); got != tt.want {
				t.Errorf("FormatSizes(%+v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
