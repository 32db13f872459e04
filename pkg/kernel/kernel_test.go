package kernel

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPadding(t *testing.T) {
	k := Default()

	require.Equal(t, 6, k.Len())
	require.Equal(t, [Dims]int{-1, -1, -1, 0, 0}, k.PrePad)
	require.Equal(t, [Dims]int{1, 1, 1, 0, 0}, k.PostPad)
	for _, r := range k.Rows {
		require.Equal(t, 1.0, r.Coeff)
	}
	require.NoError(t, k.Validate())
}

func TestNewKernelIsZeroed(t *testing.T) {
	k := New(4)
	require.Len(t, k.Rows, 4)
	for _, r := range k.Rows {
		require.True(t, r.IsZero())
		require.Zero(t, r.Coeff)
	}

	k.DerivePadding()
	require.Equal(t, [Dims]int{}, k.PrePad)
	require.Equal(t, [Dims]int{}, k.PostPad)
}

func TestDerivePaddingAfterEdit(t *testing.T) {
	k := Default()
	k.Append([Dims]float64{0, 0, 0, 0, 2}, 1)
	k.Append([Dims]float64{-3, 0, 0, 0, 0}, 1)

	require.ErrorIs(t, k.Validate(), ErrOffsetOutOfBounds)

	k.DerivePadding()
	require.NoError(t, k.Validate())
	require.Equal(t, [Dims]int{-3, -1, -1, 0, 0}, k.PrePad)
	require.Equal(t, [Dims]int{1, 1, 1, 0, 2}, k.PostPad)
}

func TestDerivePaddingFractionalOffsets(t *testing.T) {
	k := New(0)
	k.Append([Dims]float64{-1.5, 0.5}, 1)
	k.DerivePadding()

	require.Equal(t, -2, k.PrePad[AxisX])
	require.Equal(t, 1, k.PostPad[AxisY])
	require.NoError(t, k.Validate())
	require.Equal(t, [Dims]int{-2, 0, 0, 0, 0}, k.Rows[0].Step())

	half := Row{Offset: [Dims]float64{-0.5, 0.5, 0, 0, -0.25}}
	require.Equal(t, [Dims]int{-1, 0, 0, 0, -1}, half.Step())
}

func TestSplitDefault(t *testing.T) {
	causal, anti := Default().Split()

	require.Equal(t, 3, causal.Len())
	require.Equal(t, 3, anti.Len())
	for _, r := range causal.Rows {
		require.True(t, r.Causal(), "row %v", r.Offset)
	}
	require.Equal(t, [Dims]int{-1, -1, -1, 0, 0}, causal.PrePad)
	require.Equal(t, [Dims]int{}, causal.PostPad)
	require.Equal(t, [Dims]int{}, anti.PrePad)
	require.Equal(t, [Dims]int{1, 1, 1, 0, 0}, anti.PostPad)
}

func TestSplitRasterOrder(t *testing.T) {
	tests := []struct {
		offset [Dims]float64
		causal bool
	}{
		{[Dims]float64{0, 0, -1}, true},
		{[Dims]float64{1, 1, -1}, true},
		{[Dims]float64{1, -1, 0}, true},
		{[Dims]float64{-1, 1, 0}, false},
		{[Dims]float64{-1, 0, 0}, true},
		{[Dims]float64{1, 0, 0}, false},
		{[Dims]float64{-1, -1, 1}, false},
		{[Dims]float64{0, 0, 0}, false},
		{[Dims]float64{1, 1, 1, -1}, true},
		{[Dims]float64{-1, -1, -1, 0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.offset), func(t *testing.T) {
			require.Equal(t, tt.causal, Row{Offset: tt.offset}.Causal())
		})
	}
}

func TestSplitCopiesRows(t *testing.T) {
	k := Default()
	causal, _ := k.Split()
	causal.Rows[0].Coeff = 42

	for _, r := range k.Rows {
		require.Equal(t, 1.0, r.Coeff)
	}
}

func TestSplitKeepsZeroRowAnticausal(t *testing.T) {
	k := Default()
	k.Append([Dims]float64{}, 1)
	k.DerivePadding()

	causal, anti := k.Split()
	require.Equal(t, 3, causal.Len())
	require.Equal(t, 4, anti.Len())
}

const sampleKernel = `MNI Morphology Kernel File
Kernel_Type = Normal_Kernel;
Kernel =
  1.0  0.0  0.0  0.0  0.0  1.0
 -1.0  0.0  0.0  0.0  0.0  1.0
  0.0  1.0  0.0  0.0  0.0  0.5
  0.0 -1.0  0.0  0.0  0.0  0.5
  0.0  0.0  2.0  0.0  0.0  0.25
  0.0  0.0 -2.0  0.0  0.0  0.25
;
`

func TestParse(t *testing.T) {
	k, err := Parse(strings.NewReader(sampleKernel))
	require.NoError(t, err)

	require.Equal(t, 6, k.Len())
	require.Equal(t, 0.25, k.Rows[5].Coeff)
	require.Equal(t, -2.0, k.Rows[5].Offset[AxisZ])
	require.Equal(t, [Dims]int{-1, -1, -2, 0, 0}, k.PrePad)
	require.Equal(t, [Dims]int{1, 1, 2, 0, 0}, k.PostPad)
}

func TestParseCompactLayout(t *testing.T) {
	src := "MNI Morphology Kernel File\nKernel_Type=Normal_Kernel;Kernel=\n1 0 0 0 0 1 -1 0 0 0 0 1;"
	k, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, k.Len())
}

func TestParseEmptyKernel(t *testing.T) {
	src := "MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nKernel =\n;\n"
	k, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Zero(t, k.Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"empty", "", ErrHeader},
		{"bad header", "MNI Kernel\nKernel_Type = Normal_Kernel;\nKernel =\n;\n", ErrHeader},
		{"missing type keyword", "MNI Morphology Kernel File\nKernel = 1 0 0 0 0 1;\n", ErrHeader},
		{"unsupported type", "MNI Morphology Kernel File\nKernel_Type = Fancy_Kernel;\nKernel =\n;\n", ErrUnsupportedType},
		{"missing rows keyword", "MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nRows =\n;\n", ErrHeader},
		{"short row", "MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nKernel =\n 1 0 0 0 0\n;\n", ErrMalformedRow},
		{"non numeric", "MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nKernel =\n 1 0 zero 0 0 1\n;\n", ErrMalformedRow},
		{"unterminated", "MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nKernel =\n 1 0 0 0 0 1\n", ErrMalformedRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Parse(strings.NewReader(tt.src))
			require.Nil(t, k)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestParseRowLimit(t *testing.T) {
	build := func(n int) string {
		var b strings.Builder
		b.WriteString("MNI Morphology Kernel File\nKernel_Type = Normal_Kernel;\nKernel =\n")
		for i := 0; i < n; i++ {
			b.WriteString(" 0 0 0 0 0 1\n")
		}
		b.WriteString(";\n")
		return b.String()
	}

	k, err := Parse(strings.NewReader(build(MaxRows)))
	require.NoError(t, err)
	require.Equal(t, MaxRows, k.Len())

	_, err = Parse(strings.NewReader(build(MaxRows + 1)))
	require.ErrorIs(t, err, ErrTooManyRows)
}

func TestFormatRoundTrip(t *testing.T) {
	k := Default()
	k.Append([Dims]float64{0.5, -2.25, 3, 0, 0}, 0.125)
	k.DerivePadding()

	var buf bytes.Buffer
	require.NoError(t, k.Format(&buf))

	got, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, k.Rows, got.Rows)
	require.Equal(t, k.PrePad, got.PrePad)
	require.Equal(t, k.PostPad, got.PostPad)
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cross.kern")
	require.NoError(t, Default().Write(path))

	k, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, Default().Rows, k.Rows)

	_, err = Read(filepath.Join(t.TempDir(), "missing.kern"))
	require.Error(t, err)
}

func TestString(t *testing.T) {
	s := Default().String()
	require.Contains(t, s, "coeff")
	require.Contains(t, s, "[05]")
}
