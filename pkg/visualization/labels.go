package visualization

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/lucasb-eyer/go-colorful"

	"volmorph/internal/models"
)

// goldenAngle spaces successive hues so neighbouring labels differ strongly.
const goldenAngle = 137.50776405

// LabelPalette returns n+1 colours: black for background at index 0 and a
// distinct colour for every label 1..n. The palette is deterministic.
func LabelPalette(n int) []color.Color {
	if n < 0 {
		n = 0
	}
	palette := make([]color.Color, n+1)
	palette[0] = color.Black
	for i := 1; i <= n; i++ {
		hue := math.Mod(float64(i-1)*goldenAngle, 360)
		// alternate lightness so labels with close hues stay apart
		light := 0.65
		if i%2 == 0 {
			light = 0.8
		}
		palette[i] = colorful.Hcl(hue, 0.7, light).Clamped()
	}
	return palette
}

// ExtractLabelSlice renders a slice of a labelled volume in colour, one
// palette entry per label. Values that are not positive integers are drawn
// as background.
func (v *Viewer) ExtractLabelSlice(axis string, position int) (image.Image, error) {
	gray, err := v.ExtractSlice(axis, position)
	if err != nil {
		return nil, err
	}
	a, _ := axisIndex(axis)

	palette := LabelPalette(int(math.Max(0, v.hi)))
	b := gray.Bounds()
	img := image.NewRGBA(b)
	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			x, y, z := sliceCoord(a, position, px, py)
			l := v.vol.At3(x, y, z)
			c := palette[0]
			if l >= 1 && l == math.Trunc(l) && int(l) < len(palette) {
				c = palette[int(l)]
			}
			img.Set(px, py, c)
		}
	}
	return img, nil
}

// sliceCoord maps a pixel of a slice image back to volume coordinates,
// following the layout of ExtractSlice.
func sliceCoord(axis, position, px, py int) (x, y, z int) {
	switch axis {
	case models.X:
		return position, py, px
	case models.Y:
		return px, position, py
	default:
		return px, py, position
	}
}

// Physical resamples a slice along axis so that every pixel covers the same
// physical length, using the volume's voxel size. Nearest neighbour
// sampling keeps label colours intact. Slices of isotropic volumes are
// returned unchanged.
func (v *Viewer) Physical(img image.Image, axis string) image.Image {
	a, err := axisIndex(axis)
	if err != nil {
		return img
	}
	vs := v.vol.VoxelSize
	var sx, sy float64
	switch a {
	case models.X:
		sx, sy = vs.Z, vs.Y
	case models.Y:
		sx, sy = vs.X, vs.Z
	default:
		sx, sy = vs.X, vs.Y
	}
	if sx <= 0 || sy <= 0 || sx == sy {
		return img
	}

	unit := math.Min(sx, sy)
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * sx / unit))
	h := int(math.Round(float64(b.Dy()) * sy / unit))
	return transform.Resize(img, w, h, transform.NearestNeighbor)
}
