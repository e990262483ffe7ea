package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/suite"
)

const rule = "═══════════════════════════════════════════════════════════"

var banner = []string{
	"BYTEmark* Native Mode Benchmark ver. 2 (10/95)",
	"Index-split by Andrew D. Balsa (11/97)",
	"Linux/Unix* port by Uwe F. Mayer (12/96,11/97)",
}

var baselines = map[suite.Baseline]struct {
	title   string
	machine string
}{
	suite.BaselineByteMark: {"ORIGINAL BYTEMARK RESULTS", "Pentium* 90, 256 KB L2-cache, Watcom* compiler 10.0"},
	suite.BaselineLinux:    {"LINUX DATA BELOW", "AMD K6/233*, 512 KB L2-cache, gcc 2.7.2.3, libc-5.4.38"},
}

// Renderer writes the text report.
type Renderer struct {
	w        io.Writer
	allStats bool
}

// NewRenderer returns a Renderer writing to w. allStats adds iteration
// counts, timings and per-repeat statistics.
func NewRenderer(w io.Writer, allStats bool) *Renderer {
	return &Renderer{w: w, allStats: allStats}
}

// Banner prints the boxed program header.
func (r *Renderer) Banner() {
	width := 0
	for _, l := range banner {
		width = max(width, len(l))
	}
	colorPrintln(r.w, Cyan, "╔"+strings.Repeat("═", width+2)+"╗")
	for _, l := range banner {
		colorPrintf(r.w, Cyan, "║ %-*s ║\n", width, l)
	}
	colorPrintln(r.w, Cyan, "╚"+strings.Repeat("═", width+2)+"╝")
}

func (r *Renderer) sectionHeader(title string, descriptions ...string) {
	_, _ = fmt.Fprintln(r.w)
	colorPrintln(r.w, Bold, rule)
	colorPrintln(r.w, Bold, title)
	colorPrintln(r.w, Bold, rule)
	for _, desc := range descriptions {
		_, _ = fmt.Fprintln(r.w, desc)
	}
	_, _ = fmt.Fprintln(r.w)
}

// SystemInfo prints the processor description.
func (r *Renderer) SystemInfo(d cpu.Description) error {
	r.sectionHeader("SYSTEM")

	table := tablewriter.NewWriter(r.w)
	table.Header("Property", "Value")
	_ = table.Append("CPU", d.Brand)
	if d.Vendor != "" {
		_ = table.Append("Vendor", d.Vendor)
		_ = table.Append("Family / Model / Stepping", fmt.Sprintf("%d / %d / %d", d.Family, d.Model, d.Stepping))
	}
	_ = table.Append("Cores", fmt.Sprintf("%d physical, %d logical", d.PhysicalCores, d.LogicalCores))
	if d.FrequencyHz > 0 {
		_ = table.Append("Frequency", fmt.Sprintf("%d MHz", d.FrequencyHz/1_000_000))
	}
	_ = table.Append("L1 data / instruction", FormatBytes(d.L1Data)+" / "+FormatBytes(d.L1Instruction))
	_ = table.Append("L2", FormatBytes(d.L2))
	_ = table.Append("L3", FormatBytes(d.L3))
	_ = table.Append("Platform", d.GOOS+"/"+d.GOARCH)
	if len(d.Features) > 0 {
		_ = table.Append("Features", strings.Join(d.Features, " "))
	}
	return table.Render()
}

// Settings prints the run parameters that affect the scores.
func (r *Renderer) Settings(cfg *config.Config, minIterSecs float64) error {
	table := tablewriter.NewWriter(r.w)
	table.Header("Setting", "Value")
	_ = table.Append("Seconds per test", strconv.FormatFloat(cfg.MinSeconds, 'g', -1, 64))
	_ = table.Append("Min iteration time", FormatSeconds(minIterSecs))
	_ = table.Append("Workers", strconv.Itoa(cfg.Concurrency))
	_ = table.Append("Pinned", strconv.FormatBool(cfg.PinWorkers))
	_ = table.Append("Alignment", strconv.Itoa(cfg.Align))
	_ = table.Append("Repeat", strconv.Itoa(cfg.Repeat))
	if cfg.CustomRun {
		_ = table.Append("Custom sizes", "yes")
	}
	return table.Render()
}

// Results prints one row per measured test.
func (r *Renderer) Results(outcomes []suite.Outcome) error {
	r.sectionHeader("BENCHMARK RESULTS",
		"Iterations/sec is measured on the wall clock, summed over all workers.",
		"Old index: Pentium* 90 = 1.  New index: AMD K6/233* = 1.")

	table := tablewriter.NewWriter(r.w)
	headers := []string{"Test", "Iterations/sec", "CPU Iterations/sec", "Old Index", "New Index"}
	if r.allStats {
		headers = append(headers, "Iterations", "Real", "CPU", "Sizes")
	}
	headerAny := make([]any, len(headers))
	for i, h := range headers {
		headerAny[i] = h
	}
	table.Header(headerAny...)

	for _, o := range outcomes {
		row := []string{
			o.Title,
			FormatRate(o.RealRate),
			FormatRate(o.CPURate),
			FormatIndex(o.ByteMark),
			FormatIndex(o.Linux),
		}
		if r.allStats {
			row = append(row,
				strconv.FormatFloat(o.Result.Iterations, 'f', -1, 64),
				FormatSeconds(o.Result.RealSeconds),
				FormatSeconds(o.Result.CPUSeconds),
				FormatSizes(o.Sizes),
			)
		}
		_ = table.Append(row)
	}
	return table.Render()
}

// Indexes prints the index summary grouped by reference machine. A group
// whose indexes could not be computed says so instead.
func (r *Renderer) Indexes(indexes []suite.Index) {
	for _, b := range []suite.Baseline{suite.BaselineByteMark, suite.BaselineLinux} {
		info := baselines[b]
		r.sectionHeader(info.title)
		printed := 0
		for _, idx := range indexes {
			if idx.Baseline != b {
				continue
			}
			_, _ = fmt.Fprintf(r.w, "%-30s: ", idx.Name)
			colorPrintln(r.w, Green, FormatIndex(idx.Value))
			printed++
		}
		if printed == 0 {
			colorPrintln(r.w, Yellow, "(not every member test ran)")
		}
		_, _ = fmt.Fprintf(r.w, "%-30s: %s\n", "Baseline", info.machine)
	}
	_, _ = fmt.Fprintln(r.w)
	_, _ = fmt.Fprintln(r.w, "* Trademarks are property of their respective holder.")
}

// Stats prints the spread of repeated measurements. It prints nothing unless
// the renderer was created with allStats.
func (r *Renderer) Stats(outcomes []suite.Outcome) error {
	if !r.allStats {
		return nil
	}
	r.sectionHeader("RUN STATISTICS", "Iterations/sec over every repeat of a test.")

	table := tablewriter.NewWriter(r.w)
	table.Header("Test", "Runs", "Mean", "StdDev", "Rel", "Min", "Max")
	for _, o := range outcomes {
		s := Summarize(o.Runs)
		_ = table.Append(
			o.Title,
			strconv.Itoa(s.N),
			FormatRate(s.Mean),
			FormatRate(s.StdDev),
			fmt.Sprintf("%.2f%%", s.RelStdDev()),
			FormatRate(s.Min),
			FormatRate(s.Max),
		)
	}
	return table.Render()
}

// TestList prints the suite table and whether cfg enables each test.
func (r *Renderer) TestList(tests []suite.Test, cfg *config.Config) error {
	table := tablewriter.NewWriter(r.w)
	table.Header("Name", "Test", "Group", "Pentium 90", "K6/233", "Enabled")
	for _, t := range tests {
		enabled := "yes"
		if !cfg.Enabled(t.Kernel) {
			enabled = "no"
		}
		_ = table.Append(
			t.Kernel,
			t.Title,
			t.Group.String(),
			FormatRate(t.ByteMark),
			FormatRate(t.Linux),
			enabled,
		)
	}
	return table.Render()
}
