// Package kernel provides the structuring elements used by the morphology
// engine: an ordered list of offset rows with per-row coefficients, the
// padding each kernel requires around a volume, and the causal/anti-causal
// split used by the two-pass raster algorithms.
package kernel

import (
	"fmt"
	"math"
	"strings"
)

// Dims is the number of offset axes of a kernel row (x, y, z, t, v).
const Dims = 5

// Axis indices of Row.Offset.
const (
	AxisX = iota
	AxisY
	AxisZ
	AxisT
	AxisV
)

// Row is one element of a kernel: a relative offset and its weight.
type Row struct {
	Offset [Dims]float64
	Coeff  float64
}

// Step returns the offset rounded down to voxel units, matching the
// floor used by DerivePadding.
func (r Row) Step() [Dims]int {
	var s [Dims]int
	for a := 0; a < Dims; a++ {
		s[a] = int(math.Floor(r.Offset[a]))
	}
	return s
}

// IsZero reports whether the row addresses the origin.
func (r Row) IsZero() bool {
	for a := 0; a < Dims; a++ {
		if r.Offset[a] != 0 {
			return false
		}
	}
	return true
}

// Kernel is a structuring element. It is built once and read-only afterwards,
// except that DerivePadding must be called again whenever Rows change.
type Kernel struct {
	Rows []Row

	// PrePad holds the most negative offset per axis (always <= 0) and
	// PostPad the most positive one (always >= 0).
	PrePad  [Dims]int
	PostPad [Dims]int
}

// New returns a kernel with n zero rows. The caller fills the rows and then
// calls DerivePadding.
func New(n int) *Kernel {
	if n < 0 {
		n = 0
	}
	return &Kernel{Rows: make([]Row, n)}
}

// Default returns the 6-connected 3-D neighbourhood with unit coefficients.
func Default() *Kernel {
	k := New(6)
	for i := range k.Rows {
		k.Rows[i].Coeff = 1
	}
	k.Rows[0].Offset[AxisX] = 1
	k.Rows[1].Offset[AxisX] = -1
	k.Rows[2].Offset[AxisY] = 1
	k.Rows[3].Offset[AxisY] = -1
	k.Rows[4].Offset[AxisZ] = 1
	k.Rows[5].Offset[AxisZ] = -1
	k.DerivePadding()
	return k
}

// Len returns the number of rows.
func (k *Kernel) Len() int { return len(k.Rows) }

// Append adds a row. Pads are not updated.
func (k *Kernel) Append(offset [Dims]float64, coeff float64) {
	k.Rows = append(k.Rows, Row{Offset: offset, Coeff: coeff})
}

// DerivePadding recomputes PrePad and PostPad from the rows.
func (k *Kernel) DerivePadding() {
	k.PrePad = [Dims]int{}
	k.PostPad = [Dims]int{}
	for _, r := range k.Rows {
		for a := 0; a < Dims; a++ {
			if lo := int(math.Floor(r.Offset[a])); lo < k.PrePad[a] {
				k.PrePad[a] = lo
			}
			if hi := int(math.Ceil(r.Offset[a])); hi > k.PostPad[a] {
				k.PostPad[a] = hi
			}
		}
	}
}

// Validate checks that every row lies within the stored pads. A kernel whose
// rows were edited without calling DerivePadding fails with
// ErrOffsetOutOfBounds.
func (k *Kernel) Validate() error {
	for i, r := range k.Rows {
		for a := 0; a < Dims; a++ {
			if r.Offset[a] < float64(k.PrePad[a]) || r.Offset[a] > float64(k.PostPad[a]) {
				return fmt.Errorf("%w: row %d axis %d offset %g outside [%d,%d]",
					ErrOffsetOutOfBounds, i, a, r.Offset[a], k.PrePad[a], k.PostPad[a])
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the kernel.
func (k *Kernel) Clone() *Kernel {
	c := &Kernel{
		Rows:    make([]Row, len(k.Rows)),
		PrePad:  k.PrePad,
		PostPad: k.PostPad,
	}
	copy(c.Rows, k.Rows)
	return c
}

// String pretty prints the kernel as a table.
func (k *Kernel) String() string {
	var b strings.Builder
	b.WriteString("           x       y       z       t       v   coeff\n")
	b.WriteString("     -----------------------------------------------\n")
	for i, r := range k.Rows {
		fmt.Fprintf(&b, "[%02d]", i)
		for a := 0; a < Dims; a++ {
			fmt.Fprintf(&b, "%8.02f", r.Offset[a])
		}
		fmt.Fprintf(&b, "%8.02f\n", r.Coeff)
	}
	return b.String()
}
