package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVolume(t *testing.T) {
	v := NewVolume([Dims]int{4, 3, 2, 0, -1}, Short)

	require.Equal(t, [Dims]int{4, 3, 2, 1, 1}, v.Sizes)
	require.Equal(t, 24, v.Len())
	require.Equal(t, 1.0, v.VoxelSize.Z)
}

func TestVoxelCount(t *testing.T) {
	n, err := VoxelCount([Dims]int{4, 3, 2, 0, -1})
	require.NoError(t, err)
	require.Equal(t, 24, n)

	n, err = VoxelCount([Dims]int{1 << 16, 1 << 15, 1, 1, 1})
	require.NoError(t, err)
	require.Equal(t, MaxVoxels, n)

	_, err = VoxelCount([Dims]int{1 << 32, 1 << 32, 1 << 32, 1, 1})
	require.Error(t, err)
	_, err = VoxelCount([Dims]int{MaxVoxels, 2, 1, 1, 1})
	require.Error(t, err)
}

func TestIndexLayout(t *testing.T) {
	v := NewVolume([Dims]int{4, 3, 2, 1, 2}, Double)

	require.Equal(t, 0, v.Index(Coord{}))
	require.Equal(t, 1, v.Index(Coord{1, 0, 0}))
	require.Equal(t, 4, v.Index(Coord{0, 1, 0}))
	require.Equal(t, 12, v.Index(Coord{0, 0, 1}))
	require.Equal(t, 24, v.Index(Coord{0, 0, 0, 0, 1}))

	v.Set3(3, 2, 1, 5)
	require.Equal(t, 5.0, v.Data[3+2*4+1*12])
}

func TestInBounds(t *testing.T) {
	v := NewVolume3D(2, 2, 2, Byte)

	require.True(t, v.InBounds(Coord{1, 1, 1}))
	require.False(t, v.InBounds(Coord{2, 0, 0}))
	require.False(t, v.InBounds(Coord{0, -1, 0}))
	require.False(t, v.InBounds(Coord{0, 0, 0, 1}))
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		dtype DataType
		in    float64
		want  float64
	}{
		{Byte, 300, 255},
		{Byte, -4, 0},
		{Byte, 2.6, 3},
		{Short, 40000, math.MaxInt16},
		{Int, -2.5, -3},
		{Float, 0.1, float64(float32(0.1))},
		{Double, 0.1, 0.1},
		{Byte, math.NaN(), 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.dtype.Quantize(tt.in), "%s(%g)", tt.dtype, tt.in)
	}
}

func TestCopyAndDefinition(t *testing.T) {
	v := NewVolume3D(3, 2, 1, Short)
	v.Set3(1, 1, 0, 9)
	v.VoxelSize.X = 0.5

	c := v.Copy()
	c.Set3(0, 0, 0, 4)
	require.Equal(t, 9.0, c.At3(1, 1, 0))
	require.Equal(t, 0.0, v.At3(0, 0, 0), "copy is independent")

	d := v.CopyDefinition(Double)
	require.Equal(t, Double, d.Type)
	require.Equal(t, v.Sizes, d.Sizes)
	require.Equal(t, 0.5, d.VoxelSize.X)
	require.Zero(t, d.CountAbove(0))
}

func TestRangeAndStats(t *testing.T) {
	v := NewVolume3D(4, 1, 1, Double)
	copy(v.Data, []float64{1, 2, 3, 6})

	lo, hi := v.Range()
	require.Equal(t, 1.0, lo)
	require.Equal(t, 6.0, hi)

	mean, sd := v.Stats()
	require.Equal(t, 3.0, mean)
	require.InDelta(t, math.Sqrt(14.0/3), sd, 1e-12)
	require.Equal(t, 2, v.CountAbove(2))
}

func TestDataTypeNames(t *testing.T) {
	for d := Byte; d <= Double; d++ {
		got, err := ParseDataType(d.String())
		require.NoError(t, err)
		require.Equal(t, d, got)
	}
	_, err := ParseDataType("complex")
	require.Error(t, err)
}
