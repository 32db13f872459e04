package morph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"volmorph/internal/models"
	"volmorph/pkg/kernel"
)

func TestEquivalenceUnionAdoptsMinimum(t *testing.T) {
	eq := NewEquivalence()
	a, b, c := eq.New(), eq.New(), eq.New()
	require.Equal(t, []int{1, 2, 3}, []int{a, b, c})

	require.Equal(t, 2, eq.Union(c, b))
	eq.Add(2)
	require.Equal(t, 2, eq.Find(c))

	require.Equal(t, 1, eq.Union(b, a))
	require.Equal(t, 1, eq.Find(c))
	require.Equal(t, 1, eq.Find(eq.Find(c)), "resolution is idempotent")

	groups := eq.Resolve()
	require.Equal(t, []Group{{Root: 1, Size: 4}}, groups)
	require.Zero(t, eq.Count(2))
	require.Zero(t, eq.Count(3))
	require.Equal(t, 3, eq.Len())
}

func TestRankBySizeThenLabel(t *testing.T) {
	groups := []Group{{Root: 1, Size: 2}, {Root: 2, Size: 5}, {Root: 4, Size: 5}}
	Rank(groups)

	require.Equal(t, []Group{
		{Label: 1, Root: 2, Size: 5},
		{Label: 2, Root: 4, Size: 5},
		{Label: 3, Root: 1, Size: 2},
	}, groups)
}

func TestLookupDropsMissingGroups(t *testing.T) {
	eq := NewEquivalence()
	eq.New()
	eq.New()
	eq.New()
	eq.Union(3, 1)

	lut := eq.Lookup([]Group{{Label: 1, Root: 1}})
	require.Equal(t, []int{0, 1, 0, 1}, lut)
}

// twoBlobs returns a volume with a 3-voxel blob that is scanned first and a
// 10-voxel blob further along in raster order.
func twoBlobs() *models.Volume {
	vol := models.NewVolume3D(12, 6, 6, models.Short)
	for x := 2; x <= 4; x++ {
		vol.Set3(x, 1, 1, 1)
	}
	for x := 1; x <= 10; x++ {
		vol.Set3(x, 3, 3, 1)
	}
	return vol
}

func TestLabelRanksBySize(t *testing.T) {
	vol := twoBlobs()

	res, err := Label(kernel.Default(), vol, DefaultLabelOptions())
	require.NoError(t, err)

	require.Equal(t, 2, res.Provisional)
	require.Equal(t, []Group{{Label: 1, Root: 2, Size: 10}, {Label: 2, Root: 1, Size: 3}}, res.Groups)
	require.Equal(t, 13, res.Voxels)
	require.Zero(t, res.Dropped)
	require.Equal(t, []float64{10, 3}, res.Sizes())

	for x := 1; x <= 10; x++ {
		require.Equal(t, 1.0, vol.At3(x, 3, 3))
	}
	for x := 2; x <= 4; x++ {
		require.Equal(t, 2.0, vol.At3(x, 1, 1))
	}
	require.Equal(t, 13, vol.CountAbove(0))
}

func TestLabelMaxGroups(t *testing.T) {
	vol := twoBlobs()

	opts := DefaultLabelOptions()
	opts.MaxGroups = 1
	res, err := Label(kernel.Default(), vol, opts)
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	require.Equal(t, 1, res.Dropped)
	require.Equal(t, 10, vol.CountAbove(0))
	require.Equal(t, 0.0, vol.At3(3, 1, 1))
	require.Equal(t, 1.0, vol.At3(5, 3, 3))
}

func TestLabelSizeRange(t *testing.T) {
	vol := twoBlobs()

	res, err := Label(kernel.Default(), vol, LabelOptions{Floor: 1, Ceil: 5})
	require.NoError(t, err)

	require.Equal(t, []Group{{Label: 1, Root: 1, Size: 3}}, res.Groups)
	require.Equal(t, 1.0, vol.At3(3, 1, 1))
	require.Equal(t, 0.0, vol.At3(5, 3, 3))
}

func TestLabelMergesEquivalences(t *testing.T) {
	// A U shape in one z plane: two arms that only meet at the bottom row,
	// so the forward pass issues two labels and then merges them.
	vol := models.NewVolume3D(6, 6, 3, models.Double)
	for y := 1; y <= 3; y++ {
		vol.Set3(1, y, 1, 1)
		vol.Set3(3, y, 1, 1)
	}
	for x := 1; x <= 3; x++ {
		vol.Set3(x, 4, 1, 1)
	}

	res, err := Label(kernel.Default(), vol, DefaultLabelOptions())
	require.NoError(t, err)

	require.Equal(t, 2, res.Provisional)
	require.Equal(t, []Group{{Label: 1, Root: 1, Size: 9}}, res.Groups)
	require.Equal(t, 9, countValue(vol, 1))
}

func TestLabelBackgroundStaysZero(t *testing.T) {
	vol := models.NewVolume3D(4, 4, 4, models.Double)

	res, err := Label(kernel.Default(), vol, DefaultLabelOptions())
	require.NoError(t, err)
	require.Empty(t, res.Groups)
	require.Equal(t, 64, countValue(vol, 0))
}

func TestDistanceIsolatedSeed(t *testing.T) {
	vol := models.NewVolume3D(5, 5, 5, models.Double)
	vol.Set3(2, 2, 2, 1)

	require.NoError(t, Distance(kernel.Default(), vol, 0))

	require.Equal(t, 1.0, vol.At3(2, 2, 2))
	require.Equal(t, 124, countValue(vol, 0))
}

func TestDistanceCityBlock(t *testing.T) {
	vol := cube(7, 1, 5, 1)

	require.NoError(t, Distance(kernel.Default(), vol, 0))

	for z := 1; z <= 5; z++ {
		for y := 1; y <= 5; y++ {
			for x := 1; x <= 5; x++ {
				want := min(x, 6-x, y, 6-y, z, 6-z)
				require.Equal(t, float64(want), vol.At3(x, y, z), "voxel (%d,%d,%d)", x, y, z)
			}
		}
	}
	require.Equal(t, 0.0, vol.At3(0, 3, 3))
}

func TestDistanceBackgroundThreshold(t *testing.T) {
	vol := cube(7, 1, 5, 3)
	for i, v := range vol.Data {
		if v == 0 {
			vol.Data[i] = 2
		}
	}

	require.NoError(t, Distance(kernel.Default(), vol, 2))

	require.Equal(t, 2.0, vol.At3(0, 0, 0))
	require.Equal(t, 3.0, vol.At3(1, 3, 3))
	require.Equal(t, 5.0, vol.At3(3, 3, 3))
}

func TestLabelZeroRangeKeepsNothing(t *testing.T) {
	vol := twoBlobs()

	res, err := Label(kernel.Default(), vol, LabelOptions{Floor: 0, Ceil: 0})
	require.NoError(t, err)

	require.Empty(t, res.Groups)
	require.Equal(t, 2, res.Dropped)
	require.Zero(t, vol.CountAbove(0))
}
