package kernels

import (
	"errors"
	"strings"
	"testing"

	"github.com/utkarsh5026/nbench/internal/harness"
)

// onePattern is a single "I" with a distinct output code.
const onePattern = `5 7 8
1
0 0 1 0 0
0 0 1 0 0
0 0 1 0 0
0 0 1 0 0
0 0 1 0 0
0 0 1 0 0
0 0 1 0 0
0 1 0 0 1 0 0 1
`

func TestNewNeuralNet_Default(t *testing.T) {
	nn, err := NewNeuralNet(nil)
	if err != nil {
		t.Fatalf("NewNeuralNet: %v", err)
	}
	if nn.Patterns() != nnetMaxPats {
		t.Errorf("Patterns() = %d, want %d", nn.Patterns(), nnetMaxPats)
	}
	for p := range nn.in {
		for i, v := range nn.in[p] {
			if v != 0.1 && v != 0.9 {
				t.Fatalf("pattern %d input %d = %v, want clamped to 0.1 or 0.9", p, i, v)
			}
		}
	}
	// The first pattern is 'A', 0x41.
	want := [nnetOut]float64{0, 1, 0, 0, 0, 0, 0, 1}
	if nn.out[0] != want {
		t.Errorf("first output = %v, want %v", nn.out[0], want)
	}
}

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		patterns int
		wantErr  bool
	}{
		{name: "one pattern", data: onePattern, patterns: 1},
		{name: "count above available", data: strings.Replace(onePattern, "\n1\n", "\n2\n", 1), wantErr: true},
		{name: "wrong layout", data: strings.Replace(onePattern, "5 7 8", "5 7 7", 1), wantErr: true},
		{name: "zero patterns", data: "5 7 8\n0\n", wantErr: true},
		{name: "empty", data: "", wantErr: true},
		{name: "not a number", data: strings.Replace(onePattern, "0 0 1 0 0", "0 x 1 0 0", 1), wantErr: true},
		{name: "truncated outputs", data: strings.TrimSuffix(onePattern, "0 0 1\n"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nn, err := parsePatterns([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePatterns() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrPatternFormat) {
					t.Errorf("error %v does not wrap ErrPatternFormat", err)
				}
				return
			}
			if nn.Patterns() != tt.patterns {
				t.Errorf("Patterns() = %d, want %d", nn.Patterns(), tt.patterns)
			}
		})
	}
}

func TestNeuralNet_Converges(t *testing.T) {
	if testing.Short() {
		t.Skip("trains the full network")
	}
	nn, err := NewNeuralNet(nil)
	if err != nil {
		t.Fatalf("NewNeuralNet: %v", err)
	}
	inst, _ := runOnce(t, nn, harness.Sizes{Loops: 1})
	n := inst.(*nnetInstance)

	if n.worstErr >= nnetStop {
		t.Errorf("worst error %v after training, want < %v", n.worstErr, nnetStop)
	}
	if n.passes < 2 || n.passes >= nnetMaxPasses {
		t.Errorf("passes = %d", n.passes)
	}
	first := n.passes

	// Prepare reseeds, so a second run retraces the first.
	inst.Prepare()
	if err := inst.Run(); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n.passes != first {
		t.Errorf("second run took %d passes, first took %d", n.passes, first)
	}
}

func TestNeuralNet_SinglePattern(t *testing.T) {
	nn, err := NewNeuralNet([]byte(onePattern))
	if err != nil {
		t.Fatalf("NewNeuralNet: %v", err)
	}
	inst, _ := runOnce(t, nn, harness.Sizes{Loops: 2})
	n := inst.(*nnetInstance)
	if n.worstErr >= nnetStop {
		t.Errorf("worst error %v, want < %v", n.worstErr, nnetStop)
	}
	if inst.Units() != 2 {
		t.Errorf("Units() = %v, want 2", inst.Units())
	}
}
