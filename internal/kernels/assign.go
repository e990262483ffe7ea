package kernels

import (
	"math"

	"github.com/utkarsh5026/nbench/internal/harness"
)

const (
	assignRows      = 101
	assignCols      = 101
	assignMaxArrays = 10000
	assignMaxCost   = 5000000
)

// Assignment solves NumArrays copies of a 101x101 task assignment problem by
// reducing the cost matrix until a complete set of independent zeros exists.
type Assignment struct{}

func NewAssignment() *Assignment { return &Assignment{} }

func (*Assignment) Name() string { return Assign }

func (*Assignment) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamNumArrays,
		Start: 1,
		Max:   assignMaxArrays,
		Grow:  harness.Step(1),
	}
}

func (*Assignment) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	s := &assignInstance{
		ar:        newArena(env.Alloc),
		numArrays: orDefault(sizes.NumArrays, 1),
	}
	cost, err := allocate[int64](s.ar, assignRows*assignCols*(s.numArrays+1))
	if err != nil {
		return nil, err
	}
	s.pristine = tableau(cost[:assignRows*assignCols])
	s.work = cost[assignRows*assignCols:]

	env.Rand.Reseed(13)
	for i := range s.pristine {
		s.pristine[i] = int64(env.Rand.NextPositiveBounded(assignMaxCost))
	}
	return s, nil
}

type assignInstance struct {
	ar        *arena
	pristine  tableau
	work      []int64
	numArrays int
	marks     [assignRows * assignCols]int8
}

func (s *assignInstance) matrix(k int) tableau {
	n := assignRows * assignCols
	return tableau(s.work[k*n : (k+1)*n])
}

func (s *assignInstance) Prepare() {
	for k := 0; k < s.numArrays; k++ {
		copy(s.matrix(k), s.pristine)
	}
}

func (s *assignInstance) Run() error {
	for k := 0; k < s.numArrays; k++ {
		s.matrix(k).solve(&s.marks)
	}
	return nil
}

// Units credits every matrix solved, not just the iteration.
func (s *assignInstance) Units() float64 { return float64(s.numArrays) }

func (s *assignInstance) Teardown() { _ = s.ar.release() }

// tableau is a row-major assignRows x assignCols cost matrix.
type tableau []int64

const (
	markFree     int8 = 0
	markAssigned int8 = 1
	markCrossed  int8 = 2
)

func (t tableau) at(i, j int) int64 { return t[i*assignCols+j] }

// solve reduces t in place and leaves in marks one markAssigned zero per row
// and column.
func (t tableau) solve(marks *[assignRows * assignCols]int8) {
	t.reduce()
	for t.firstAssignments(marks) != assignRows {
		t.secondAssignments(marks)
	}
}

// reduce subtracts each row's minimum from the row, then each column's
// minimum from the column.
func (t tableau) reduce() {
	for i := 0; i < assignRows; i++ {
		row := t[i*assignCols : (i+1)*assignCols]
		low := int64(math.MaxInt64)
		for _, v := range row {
			low = min(low, v)
		}
		for j := range row {
			row[j] -= low
		}
	}
	for j := 0; j < assignCols; j++ {
		low := int64(math.MaxInt64)
		for i := 0; i < assignRows; i++ {
			low = min(low, t.at(i, j))
		}
		if low != 0 {
			for i := 0; i < assignRows; i++ {
				t[i*assignCols+j] -= low
			}
		}
	}
}

// firstAssignments assigns zeros that are alone in their row or column,
// repeating until nothing changes, then assigns the first free zero of each
// remaining row. It returns the number of assignments made.
func (t tableau) firstAssignments(marks *[assignRows * assignCols]int8) int {
	clear(marks[:])
	free := func(i, j int) bool {
		return t.at(i, j) == 0 && marks[i*assignCols+j] == markFree
	}

	total := 0
	selected := 0
	for {
		assigned := 0
		for i := 0; i < assignRows; i++ {
			zeros := 0
			for j := 0; j < assignCols; j++ {
				if free(i, j) {
					zeros++
					selected = j
				}
			}
			if zeros == 1 {
				assigned++
				total++
				marks[i*assignCols+selected] = markAssigned
				for k := 0; k < assignRows; k++ {
					if k != i && t.at(k, selected) == 0 {
						marks[k*assignCols+selected] = markCrossed
					}
				}
			}
		}
		for j := 0; j < assignCols; j++ {
			zeros := 0
			for i := 0; i < assignRows; i++ {
				if free(i, j) {
					zeros++
					selected = i
				}
			}
			if zeros == 1 {
				assigned++
				total++
				marks[selected*assignCols+j] = markAssigned
				for k := 0; k < assignCols; k++ {
					if k != j && t.at(selected, k) == 0 {
						marks[selected*assignCols+k] = markCrossed
					}
				}
			}
		}
		if assigned == 0 {
			break
		}
	}
	if total == assignRows {
		return total
	}

	for i := 0; i < assignRows; i++ {
		sel := -1
		for j := 0; j < assignCols; j++ {
			if free(i, j) {
				sel = j
				break
			}
		}
		if sel == -1 {
			continue
		}
		marks[i*assignCols+sel] = markAssigned
		total++
		for k := 0; k < assignCols; k++ {
			if k != sel && t.at(i, k) == 0 {
				marks[i*assignCols+k] = markCrossed
			}
		}
		for k := 0; k < assignRows; k++ {
			if k != i && t.at(k, sel) == 0 {
				marks[k*assignCols+sel] = markCrossed
			}
		}
	}
	return total
}

// secondAssignments covers the zeros with the fewest lines and shifts the
// smallest uncovered value from uncovered cells to doubly covered ones.
func (t tableau) secondAssignments(marks *[assignRows * assignCols]int8) {
	var linesRow [assignRows]bool
	var linesCol [assignCols]bool

	for i := 0; i < assignRows; i++ {
		hasAssignment := false
		for j := 0; j < assignCols; j++ {
			if marks[i*assignCols+j] == markAssigned {
				hasAssignment = true
				break
			}
		}
		linesRow[i] = !hasAssignment
	}

	for {
		newRows := 0
		for i := 0; i < assignRows; i++ {
			if !linesRow[i] {
				continue
			}
			for j := 0; j < assignCols; j++ {
				if t.at(i, j) == 0 {
					linesCol[j] = true
				}
			}
		}
		for j := 0; j < assignCols; j++ {
			if !linesCol[j] {
				continue
			}
			for i := 0; i < assignRows; i++ {
				if marks[i*assignCols+j] == markAssigned && !linesRow[i] {
					linesRow[i] = true
					newRows++
				}
			}
		}
		if newRows == 0 {
			break
		}
	}

	smallest := int64(math.MaxInt64)
	for i := 0; i < assignRows; i++ {
		if !linesRow[i] {
			continue
		}
		for j := 0; j < assignCols; j++ {
			if !linesCol[j] {
				smallest = min(smallest, t.at(i, j))
			}
		}
	}

	for i := 0; i < assignRows; i++ {
		for j := 0; j < assignCols; j++ {
			switch {
			case linesRow[i] && !linesCol[j]:
				t[i*assignCols+j] -= smallest
			case !linesRow[i] && linesCol[j]:
				t[i*assignCols+j] += smallest
			}
		}
	}
}
