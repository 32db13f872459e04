package models

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Dims is the number of addressable axes of a volume.
const Dims = 5

// Axis names, in the order used by Coord and Volume.Sizes.
const (
	X = iota
	Y
	Z
	T
	V
)

// Coord addresses one voxel as (x, y, z, t, v).
type Coord [Dims]int

// DataType is the storage type of a volume. Values written with Set are
// quantized to it.
type DataType int

const (
	Byte DataType = iota
	Short
	Int
	Float
	Double
)

var dataTypeNames = [...]string{"byte", "short", "int", "float", "double"}

// String returns the lower-case name used in volume file headers.
func (d DataType) String() string {
	if d < Byte || d > Double {
		return fmt.Sprintf("DataType(%d)", int(d))
	}
	return dataTypeNames[d]
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(name string) (DataType, error) {
	for i, n := range dataTypeNames {
		if strings.EqualFold(n, name) {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}

// Limits returns the representable range of the type.
func (d DataType) Limits() (lo, hi float64) {
	switch d {
	case Byte:
		return 0, math.MaxUint8
	case Short:
		return math.MinInt16, math.MaxInt16
	case Int:
		return math.MinInt32, math.MaxInt32
	case Float:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Quantize converts value to the closest value representable by the type.
func (d DataType) Quantize(value float64) float64 {
	switch d {
	case Byte, Short, Int:
		lo, hi := d.Limits()
		if math.IsNaN(value) {
			return 0
		}
		return math.Max(lo, math.Min(hi, math.Round(value)))
	case Float:
		return float64(float32(value))
	default:
		return value
	}
}

// Volume represents a dense scalar grid of up to five axes
type Volume struct {
	// Data holds the voxel values with X varying fastest, then Y, Z, T and V
	Data []float64

	// Sizes is the number of voxels along each axis; unused axes have size 1
	Sizes [Dims]int

	// Type is the storage type values are quantized to
	Type DataType

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	strides [Dims]int
}

// MaxVoxels is the largest voxel count a volume may hold.
const MaxVoxels = 1 << 31

// VoxelCount returns the number of voxels of a grid with the given sizes,
// treating sizes below 1 as 1. It fails when the count exceeds MaxVoxels.
func VoxelCount(sizes [Dims]int) (int, error) {
	n := 1
	for a := 0; a < Dims; a++ {
		s := max(sizes[a], 1)
		if s > MaxVoxels/n {
			return 0, fmt.Errorf("volume of %v voxels exceeds %d", sizes, MaxVoxels)
		}
		n *= s
	}
	return n, nil
}

// NewVolume allocates a zero-filled volume. Sizes below 1 are treated as 1.
// Callers holding untrusted sizes check them with VoxelCount first.
func NewVolume(sizes [Dims]int, dtype DataType) *Volume {
	v := &Volume{Sizes: sizes, Type: dtype}
	n := 1
	for a := 0; a < Dims; a++ {
		if v.Sizes[a] < 1 {
			v.Sizes[a] = 1
		}
		v.strides[a] = n
		n *= v.Sizes[a]
	}
	v.Data = make([]float64, n)
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// NewVolume3D allocates a zero-filled width x height x depth volume.
func NewVolume3D(width, height, depth int, dtype DataType) *Volume {
	return NewVolume([Dims]int{width, height, depth, 1, 1}, dtype)
}

// Len returns the number of voxels.
func (v *Volume) Len() int { return len(v.Data) }

// InBounds reports whether c addresses a voxel of the volume.
func (v *Volume) InBounds(c Coord) bool {
	for a := 0; a < Dims; a++ {
		if c[a] < 0 || c[a] >= v.Sizes[a] {
			return false
		}
	}
	return true
}

// Index returns the offset of c in Data. c must be in bounds.
func (v *Volume) Index(c Coord) int {
	idx := 0
	for a := 0; a < Dims; a++ {
		idx += c[a] * v.strides[a]
	}
	return idx
}

// At returns the value stored at c.
func (v *Volume) At(c Coord) float64 {
	return v.Data[v.Index(c)]
}

// Set stores value at c after quantizing it to the volume type.
func (v *Volume) Set(c Coord, value float64) {
	v.Data[v.Index(c)] = v.Type.Quantize(value)
}

// At3 and Set3 address the first three axes with t = v = 0.
func (v *Volume) At3(x, y, z int) float64 {
	return v.At(Coord{x, y, z})
}

func (v *Volume) Set3(x, y, z int, value float64) {
	v.Set(Coord{x, y, z}, value)
}

// Copy returns a defensive copy with the same shape, type and values.
func (v *Volume) Copy() *Volume {
	c := v.CopyDefinition(v.Type)
	copy(c.Data, v.Data)
	return c
}

// CopyDefinition returns a zero-filled volume with the same shape and voxel
// size but a different storage type.
func (v *Volume) CopyDefinition(dtype DataType) *Volume {
	c := NewVolume(v.Sizes, dtype)
	c.VoxelSize = v.VoxelSize
	return c
}

// Fill sets every voxel to value.
func (v *Volume) Fill(value float64) {
	q := v.Type.Quantize(value)
	for i := range v.Data {
		v.Data[i] = q
	}
}

// Range returns the smallest and largest voxel values.
func (v *Volume) Range() (min, max float64) {
	if len(v.Data) == 0 {
		return 0, 0
	}
	return floats.Min(v.Data), floats.Max(v.Data)
}

// Stats returns the mean and standard deviation of the voxel values.
func (v *Volume) Stats() (mean, stddev float64) {
	if len(v.Data) < 2 {
		if len(v.Data) == 1 {
			return v.Data[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(v.Data, nil)
}

// CountAbove returns the number of voxels whose value exceeds threshold.
func (v *Volume) CountAbove(threshold float64) int {
	n := 0
	for _, val := range v.Data {
		if val > threshold {
			n++
		}
	}
	return n
}
